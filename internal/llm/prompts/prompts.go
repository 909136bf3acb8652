package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

var tagRegex = regexp.MustCompile(`(?i)</?\s*(system-instructions|student-data)\b[^>]*>`)

// Tone selects the register of a drafted report card comment.
type Tone string

const (
	// ToneFormal is the default, professional register.
	ToneFormal Tone = "formal"
	// ToneWarm is encouraging and parent-facing.
	ToneWarm Tone = "warm"
	// ToneBrief is a single short sentence.
	ToneBrief Tone = "brief"
)

var validTones = map[Tone]bool{
	ToneFormal: true,
	ToneWarm:   true,
	ToneBrief:  true,
}

var (
	loadOnce          sync.Once
	loadErr           error
	feedbackTemplates map[Tone]*template.Template
)

// IsValidTone checks if a tone name is valid.
func IsValidTone(t string) bool {
	return validTones[Tone(t)]
}

// FeedbackData holds template data for feedback prompts. Terms and Final
// are preformatted percentages; "" means no data.
type FeedbackData struct {
	FirstName  string
	Subject    string
	GradeLevel int
	Terms      []string
	Final      string
	Letter     string
	Language   string // English name of the output language, "" for default
}

// Load parses the tone templates. A nil fsys loads the embedded set.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		if fsys == nil {
			fsys = templateFS
		}
		funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}
		feedbackTemplates = make(map[Tone]*template.Template)
		for _, t := range []Tone{ToneFormal, ToneWarm, ToneBrief} {
			name := "templates/feedback_" + string(t) + ".txt"
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(t)).Funcs(funcs).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			feedbackTemplates[t] = tmpl
		}
	})
	return loadErr
}

// BuildFeedbackPrompt renders the system prompt for one comment.
func BuildFeedbackPrompt(tone Tone, data FeedbackData) (string, error) {
	if err := Load(nil); err != nil {
		return "", err
	}
	tmpl, ok := feedbackTemplates[tone]
	if !ok {
		return "", errors.New("invalid feedback tone: " + string(tone))
	}

	data.FirstName = sanitize(data.FirstName, 100)
	data.Subject = sanitize(data.Subject, 200)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitize(s string, limit int) string {
	s = tagRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	return s
}
