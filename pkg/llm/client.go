// Package llm extracts challenge metadata from video text with a language
// model. The model sees the title, description, tags and the opening of the
// transcript, and must answer with a single JSON object in a fixed schema.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 600

	descriptionLimit    = 1000
	transcriptWordLimit = 1000
)

// Extraction is the model's answer. String fields are pointers because the
// model answers null when the text does not say.
type Extraction struct {
	Restaurant *string `json:"restaurant"`
	City       *string `json:"city"`
	Country    *string `json:"country"`
	Result     string  `json:"result"`
	FoodType   *string `json:"food_type"`
	Confidence float64 `json:"confidence"`

	FoodVolumeScore    int `json:"food_volume_score"`
	TimeLimitScore     int `json:"time_limit_score"`
	SuccessRateScore   int `json:"success_rate_score"`
	SpicinessScore     int `json:"spiciness_score"`
	FoodDiversityScore int `json:"food_diversity_score"`
	RiskLevelScore     int `json:"risk_level_score"`
}

// Input is the text surface handed to the model.
type Input struct {
	Title       string
	Description string
	Tags        []string
	Transcript  string
}

// Extractor asks a model for challenge metadata.
type Extractor interface {
	ExtractChallenge(ctx context.Context, in Input) (*Extraction, error)
}

// messagesAPI is the slice of the Anthropic SDK the client needs.
type messagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Client calls the Anthropic Messages API.
type Client struct {
	messages  messagesAPI
	model     anthropic.Model
	maxTokens int64
	logger    *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithModel overrides the model name.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = anthropic.Model(model)
		}
	}
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = int64(n)
		}
	}
}

func withMessagesAPI(m messagesAPI) ClientOption {
	return func(c *Client) { c.messages = m }
}

// NewClient builds a Client authenticated with the given API key.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, eris.New("llm: api key is required")
	}

	c := &Client{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		logger:    zap.L().With(zap.String("component", "llm")),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.messages == nil {
		sdk := anthropic.NewClient(option.WithAPIKey(apiKey))
		c.messages = &sdk.Messages
	}
	return c, nil
}

// ExtractChallenge sends one extraction request and validates the answer
// against the fixed schema.
func (c *Client) ExtractChallenge(ctx context.Context, in Input) (*Extraction, error) {
	prompt := buildPrompt(in)

	msg, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: message request")
	}

	var raw strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			raw.WriteString(block.Text)
		}
	}

	ext, err := parseExtraction(raw.String())
	if err != nil {
		return nil, err
	}

	c.logger.Debug("extracted challenge metadata",
		zap.Float64("confidence", ext.Confidence))
	return ext, nil
}

// requiredKeys are the fields the model must answer with, even as null.
var requiredKeys = []string{
	"restaurant", "city", "country", "result", "food_type", "confidence",
	"food_volume_score", "time_limit_score", "success_rate_score",
	"spiciness_score", "food_diversity_score", "risk_level_score",
}

// parseExtraction strips markdown fences, decodes the JSON object and checks
// every required key is present.
func parseExtraction(raw string) (*Extraction, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, eris.New("llm: empty response")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &keys); err != nil {
		return nil, eris.Wrap(err, "llm: decode response")
	}
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			return nil, eris.Errorf("llm: response missing %q", k)
		}
	}

	var ext Extraction
	if err := json.Unmarshal([]byte(body), &ext); err != nil {
		return nil, eris.Wrap(err, "llm: decode response")
	}
	return &ext, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func buildPrompt(in Input) string {
	desc := in.Description
	if len(desc) > descriptionLimit {
		desc = desc[:descriptionLimit]
	}
	transcript := truncateWords(in.Transcript, transcriptWordLimit)

	var b strings.Builder
	b.WriteString("You analyze food challenge videos. From the video text below, extract challenge metadata.\n\n")
	fmt.Fprintf(&b, "Title: %s\n\nDescription:\n%s\n\n", in.Title, desc)
	if len(in.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(in.Tags, ", "))
	}
	if transcript != "" {
		fmt.Fprintf(&b, "Transcript opening:\n%s\n\n", transcript)
	}
	b.WriteString(`Answer with a single JSON object and nothing else. Schema:
{
  "restaurant": string or null,   // venue name only, no city
  "city": string or null,
  "country": string or null,      // ISO-style code such as US or UK
  "result": "success" | "failure" | "unknown",
  "food_type": string or null,    // e.g. "burger", "wings", "mixed grill"
  "confidence": number,           // 0.0 to 1.0 overall confidence
  "food_volume_score": integer,   // 0-10, amount of food
  "time_limit_score": integer,    // 0-10, time pressure
  "success_rate_score": integer,  // 0-10, how rarely people finish
  "spiciness_score": integer,     // 0-10
  "food_diversity_score": integer,// 0-10, variety of foods
  "risk_level_score": integer     // 0-10, overall difficulty
}
Use null when the text does not say. Every key must be present.`)
	return b.String()
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.TrimSpace(s)
	}
	return strings.Join(words[:n], " ")
}
