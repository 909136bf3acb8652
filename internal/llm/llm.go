package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/pavelanni/reportcard/internal/grading"
	"github.com/pavelanni/reportcard/internal/llm/prompts"
	"github.com/pavelanni/reportcard/internal/model"
	"github.com/pavelanni/reportcard/internal/report"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
	tone  prompts.Tone
}

// New creates a new LLM client. An unknown tone falls back to formal.
func New(baseURL, apiKey, modelName, tone string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if !prompts.IsValidTone(tone) {
		slog.Warn("unknown feedback tone, using formal", "tone", tone)
		tone = string(prompts.ToneFormal)
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
		tone:  prompts.Tone(tone),
	}
}

type feedbackResult struct {
	Feedback string `json:"feedback"`
}

// DraftFeedback asks the model for a report card comment on one student's
// results in one subject. The output language follows the language stored
// in ctx, if any.
func (c *Client) DraftFeedback(ctx context.Context, student model.Student, subject string, terms [model.NumTerms]*float64) (string, error) {
	data := prompts.FeedbackData{
		FirstName:  student.FirstName,
		Subject:    subject,
		GradeLevel: student.GradeLevel,
		Language:   languageName(model.LangFromContext(ctx)),
	}
	for _, t := range terms {
		data.Terms = append(data.Terms, report.FormatPercent(t))
	}
	if final := grading.FinalGrade(terms[0], terms[1], terms[2], terms[3]); final != nil {
		data.Final = report.FormatPercent(final)
		data.Letter = grading.LetterGrade(*final)
	}

	systemPrompt, err := prompts.BuildFeedbackPrompt(c.tone, data)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var result feedbackResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return strings.TrimSpace(result.Feedback), nil
}

// languageName returns the English name of a language tag, or "" for
// English and unparsable tags.
func languageName(lang string) string {
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	if base.String() == "en" {
		return ""
	}
	return display.English.Languages().Name(tag)
}
