package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
)

type ConfigCmd struct {
	Timezone  *string `help:"IANA timezone for day boundaries (e.g. Europe/Berlin, Local)."`
	Assistant *string `help:"Assistant provider (ollama|anthropic)." enum:"ollama,anthropic"`
	Model     *string `help:"Assistant model name (empty for the provider default)."`
	OllamaURL *string `name:"ollama-url" help:"Ollama server URL."`
	AutoSync  *bool   `name:"auto-sync" negatable:"" help:"Enable periodic background sync."`
}

func (c *ConfigCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}

	if c.Timezone != nil {
		if _, err := utils.LoadLocation(*c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", *c.Timezone, err)
		}
	}

	cfg, err := a.UpdateConfig(func(cfg *models.Config) {
		if c.Timezone != nil {
			cfg.Timezone = strings.TrimSpace(*c.Timezone)
		}
		if c.Assistant != nil {
			cfg.AssistantProvider = models.AssistantProvider(*c.Assistant)
		}
		if c.Model != nil {
			cfg.AssistantModel = strings.TrimSpace(*c.Model)
		}
		if c.OllamaURL != nil {
			cfg.OllamaURL = strings.TrimRight(strings.TrimSpace(*c.OllamaURL), "/")
		}
		if c.AutoSync != nil {
			v := *c.AutoSync
			cfg.AutoSync = &v
		}
	})
	if err != nil {
		return err
	}

	fmt.Println(row("Timezone", orDash(cfg.Timezone)))
	fmt.Println(row("Assistant", orDash(string(cfg.AssistantProvider))))
	fmt.Println(row("Model", orDash(cfg.AssistantModel)))
	fmt.Println(row("Ollama URL", orDash(cfg.OllamaURL)))
	fmt.Println(row("Auto-sync", fmt.Sprintf("%t", cfg.AutoSyncEnabled())))
	return nil
}
