package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/CET-Mate/exam-session-service/internal/grading"
)

// gradeResponse is the JSON object the model is instructed to return.
type gradeResponse struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// Client wraps an OpenAI-compatible chat API as the subjective grading
// collaborator. Each grading call is single-shot; retry policy belongs to
// the caller.
type Client struct {
	api            *openai.Client
	model          string
	translationMax float64
	writingMax     float64
}

// New creates a grading client. baseURL may be empty for the default
// endpoint.
func New(baseURL, apiKey, model string, translationMax, writingMax float64) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:            openai.NewClientWithConfig(config),
		model:          model,
		translationMax: translationMax,
		writingMax:     writingMax,
	}
}

// GradeTranslation scores a translation answer against its source passage.
func (c *Client) GradeTranslation(ctx context.Context, answerText, referenceText string) (grading.GradeScore, error) {
	prompt := buildTranslationPrompt(referenceText, c.translationMax)
	return c.grade(ctx, prompt, answerText, c.translationMax)
}

// GradeWriting scores an essay answer against its topic.
func (c *Client) GradeWriting(ctx context.Context, answerText, topicText string) (grading.GradeScore, error) {
	prompt := buildWritingPrompt(topicText, c.writingMax)
	return c.grade(ctx, prompt, answerText, c.writingMax)
}

func (c *Client) grade(ctx context.Context, systemPrompt, answerText string, maxScore float64) (grading.GradeScore, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: answerText},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return grading.GradeScore{}, fmt.Errorf("grading API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return grading.GradeScore{}, fmt.Errorf("grading API returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	result, err := parseGradeResponse(raw, maxScore)
	if err != nil {
		return grading.GradeScore{}, err
	}
	return result, nil
}

// parseGradeResponse decodes the model output and clamps the score into
// [0, maxScore]. A malformed response is an error so the pipeline can
// apply its fallback policy.
func parseGradeResponse(raw string, maxScore float64) (grading.GradeScore, error) {
	var resp gradeResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return grading.GradeScore{}, fmt.Errorf("parse grading response: %w (raw: %s)", err, raw)
	}
	if resp.Score < 0 {
		resp.Score = 0
	}
	if resp.Score > maxScore {
		resp.Score = maxScore
	}
	return grading.GradeScore{Score: resp.Score, Comment: resp.Comment}, nil
}

func buildTranslationPrompt(referenceText string, maxScore float64) string {
	var sb strings.Builder
	sb.WriteString("You are a CET exam translation grader. The student translated the following Chinese passage into English:\n\n")
	sb.WriteString("SOURCE PASSAGE:\n" + referenceText + "\n\n")
	sb.WriteString(fmt.Sprintf("MAX SCORE: %.0f\n\n", maxScore))
	sb.WriteString("Grade the user's translation for accuracy, completeness and fluency.\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(fmt.Sprintf(`{"score": <number 0 to %.0f>, "comment": "<brief comment in Chinese>"}`, maxScore))
	sb.WriteString("\n")
	return sb.String()
}

func buildWritingPrompt(topicText string, maxScore float64) string {
	var sb strings.Builder
	sb.WriteString("You are a CET exam essay grader. The student wrote an English essay on the following topic:\n\n")
	sb.WriteString("TOPIC:\n" + topicText + "\n\n")
	sb.WriteString(fmt.Sprintf("MAX SCORE: %.0f\n\n", maxScore))
	sb.WriteString("Grade the user's essay for relevance, organization, vocabulary and grammar.\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(fmt.Sprintf(`{"score": <number 0 to %.0f>, "comment": "<brief comment in Chinese>"}`, maxScore))
	sb.WriteString("\n")
	return sb.String()
}
