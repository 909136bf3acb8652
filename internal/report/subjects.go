package report

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pavelanni/reportcard/internal/model"
)

// Subject is one entry of the fixed report-card subject list.
// Key prefixes the merge fields (Key_T1, Key_Final, ...); Name is matched
// against course names.
type Subject struct {
	Key  string
	Name string
}

// DefaultSubjects is the subject list of the standard report card template,
// in the order used for course matching and for the aggregate feedback.
var DefaultSubjects = []Subject{
	{Key: "English", Name: "English"},
	{Key: "Mathematics", Name: "Mathematics"},
	{Key: "Science", Name: "Science"},
	{Key: "Social_Studies", Name: "Social Studies"},
	{Key: "French", Name: "French"},
	{Key: "Physical_Education", Name: "Physical Education"},
	{Key: "Art", Name: "Art"},
	{Key: "Music", Name: "Music"},
	{Key: "Computer_Science", Name: "Computer Science"},
}

// ParseSubjects builds a subject list from names like "Social Studies".
// The key replaces spaces with underscores.
func ParseSubjects(names []string) []Subject {
	var out []Subject
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, Subject{Key: strings.Join(strings.Fields(n), "_"), Name: n})
	}
	return out
}

// normalizeName folds case, strips diacritics and collapses punctuation and
// whitespace to single spaces, so "Mathématiques  (Gr. 7)" becomes
// "mathematiques gr 7".
func normalizeName(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = cases.Fold().String(stripped)
	fields := strings.FieldsFunc(stripped, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// MatchSubjects assigns a course to each subject. For every subject in
// enumeration order an exact name match is preferred; failing that, the first
// course whose normalized name contains the normalized subject name is used.
// A course is given to at most one subject. Courses left without a subject
// are returned as unmatched.
func MatchSubjects(subjects []Subject, courses []model.Course) (map[string]model.Course, []model.Course) {
	matched := make(map[string]model.Course, len(subjects))
	used := make(map[int64]bool, len(courses))

	for _, subj := range subjects {
		for _, c := range courses {
			if !used[c.ID] && c.Name == subj.Name {
				matched[subj.Key] = c
				used[c.ID] = true
				break
			}
		}
	}
	for _, subj := range subjects {
		if _, ok := matched[subj.Key]; ok {
			continue
		}
		want := normalizeName(subj.Name)
		if want == "" {
			continue
		}
		for _, c := range courses {
			if used[c.ID] {
				continue
			}
			if strings.Contains(normalizeName(c.Name), want) {
				matched[subj.Key] = c
				used[c.ID] = true
				break
			}
		}
	}

	var unmatched []model.Course
	for _, c := range courses {
		if !used[c.ID] {
			unmatched = append(unmatched, c)
		}
	}
	return matched, unmatched
}
