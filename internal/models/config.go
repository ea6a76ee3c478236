package models

// Backend selects the remote store implementation.
type Backend string

const (
	BackendGitHub Backend = "github"
	BackendGit    Backend = "git"
)

// AssistantProvider selects the text-generation backend.
type AssistantProvider string

const (
	AssistantOllama    AssistantProvider = "ollama"
	AssistantAnthropic AssistantProvider = "anthropic"
)

// Config is the persisted connection and assistant configuration.
// GitHubToken is left empty when the token lives in the OS keyring.
type Config struct {
	Backend           Backend           `json:"backend,omitempty"`
	GitHubToken       string            `json:"githubToken,omitempty"`
	GitHubOwner       string            `json:"githubOwner,omitempty"`
	GitHubRepo        string            `json:"githubRepo,omitempty"`
	GitHubBranch      string            `json:"githubBranch,omitempty"`
	GitPath           string            `json:"gitPath,omitempty"`
	GitRemote         string            `json:"gitRemote,omitempty"`
	OllamaURL         string            `json:"ollamaUrl,omitempty"`
	AssistantProvider AssistantProvider `json:"assistantProvider,omitempty"`
	AssistantModel    string            `json:"assistantModel,omitempty"`
	Timezone          string            `json:"timezone,omitempty"`
	AutoSync          *bool             `json:"autoSync,omitempty"`
}

// EffectiveBackend returns the configured backend, defaulting to GitHub.
func (c Config) EffectiveBackend() Backend {
	if c.Backend == "" {
		return BackendGitHub
	}
	return c.Backend
}

// HasRemote reports whether enough is configured to reach a remote store.
// The token may still need to be read from the keyring.
func (c Config) HasRemote() bool {
	switch c.EffectiveBackend() {
	case BackendGit:
		return c.GitPath != ""
	default:
		return c.GitHubOwner != "" && c.GitHubRepo != ""
	}
}

// AutoSyncEnabled reports whether periodic sync should run. It defaults to on.
func (c Config) AutoSyncEnabled() bool {
	return c.AutoSync == nil || *c.AutoSync
}
