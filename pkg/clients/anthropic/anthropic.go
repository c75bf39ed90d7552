package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	model          = "claude-3-haiku-20240307"
	maxTokens      = 512
)

// ErrEmptyResponse is returned when the API answers without any text block.
var ErrEmptyResponse = errors.New("empty response from ai")

// Client defines the interface for AI record analysis.
type Client interface {
	AnalyzeRecords(ctx context.Context, records []models.Record, anomalies []models.Deviation, lang models.Language) (string, error)
}

type anthropicClient struct {
	httpClient *resty.Client
}

// Option customises the underlying HTTP client.
type Option func(*resty.Client)

// WithBaseURL points the client at another API host.
func WithBaseURL(url string) Option {
	return func(c *resty.Client) { c.SetBaseURL(strings.TrimRight(url, "/")) }
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string, opts ...Option) Client {
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	for _, opt := range opts {
		opt(client)
	}

	return &anthropicClient{httpClient: client}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

// Message is one turn of the conversation sent to the API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// AnalyzeRecords asks the model to explain the flagged deviations of the last
// record against the records before it.
func (c *anthropicClient) AnalyzeRecords(ctx context.Context, records []models.Record, anomalies []models.Deviation, lang models.Language) (string, error) {
	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt(lang),
		Messages:  []Message{{Role: "user", Content: recordsPrompt(records, anomalies)}},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post("/v1/messages")

	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anthropic api error (%d): %s", resp.StatusCode(), resp.String())
	}
	if len(respBody.Content) == 0 {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(respBody.Content[0].Text), nil
}

func systemPrompt(lang models.Language) string {
	reply := "English"
	if lang == models.LanguageBengali {
		reply = "Bengali"
	}
	return fmt.Sprintf(`You are an assistant for a small poultry farm. The farmer keeps a daily diary of egg production, feed spending and medicine given.
The last entry you are given strays from the average of the days before it by at least %d%%, as listed after the entries.
Explain the likely causes and suggest what to check, in at most five short bullet points. Consider the medicine notes.
Do not invent entries.
Reply in %s.`, models.AnomalyThresholdPercent, reply)
}

func recordsPrompt(records []models.Record, anomalies []models.Deviation) string {
	var b strings.Builder
	b.WriteString("date,eggCount,feedCost,medicineNote\n")
	for _, r := range records {
		row := r.Row()
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	if len(anomalies) > 0 {
		fmt.Fprintf(&b, "\nDeviations from the %d-day average:\n", models.AnomalyWindowDays)
		for _, a := range anomalies {
			b.WriteString("- ")
			b.WriteString(a.String())
			b.WriteString("\n")
		}
	}
	return b.String()
}
