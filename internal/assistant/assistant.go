// Package assistant generates journal prose with a language model.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/models"
)

// ErrUnavailable is returned when no backend can be reached.
var ErrUnavailable = errors.New("assistant is not available")

// Options tunes one generation. Zero values take the defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func (o Options) withDefaults(model string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.Temperature == 0 {
		o.Temperature = constants.DefaultTemperature
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = constants.DefaultMaxTokens
	}
	return o
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}

// FromConfig returns the generator selected in cfg. apiKey is only used by
// the Anthropic backend.
func FromConfig(cfg models.Config, apiKey string) (Generator, error) {
	switch cfg.AssistantProvider {
	case "", models.AssistantOllama:
		url := cfg.OllamaURL
		if url == "" {
			url = constants.DefaultOllamaURL
		}
		return NewOllama(url, cfg.AssistantModel), nil
	case models.AssistantAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrUnavailable)
		}
		return NewAnthropic(apiKey, cfg.AssistantModel), nil
	}
	return nil, fmt.Errorf("unknown assistant provider %q", cfg.AssistantProvider)
}
