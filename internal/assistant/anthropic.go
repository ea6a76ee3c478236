package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/julianstephens/daylog/internal/constants"
)

// Anthropic generates text with the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
	hasKey bool
}

var _ Generator = (*Anthropic)(nil)

func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *Anthropic {
	if model == "" {
		model = constants.DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  model,
		hasKey: apiKey != "",
	}
}

func (a *Anthropic) Name() string {
	return "anthropic (" + a.model + ")"
}

// IsAvailable reports whether an API key is configured. It does not call
// the API.
func (a *Anthropic) IsAvailable(context.Context) bool {
	return a.hasKey
}

func (a *Anthropic) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	opts = opts.withDefaults(a.model)

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(opts.Model),
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
