package constants

import "time"

const (
	AppName            = "daylog"
	DefaultKeyringUser = "github-token"
	DefaultConfigPath  = "~/.config/daylog/daylog.db"
	Version            = "v0.1.0"

	// DateFormat is the day key format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// MonthFormat is the month key format (YYYY-MM)
	MonthFormat = "2006-01"

	// TimeFormat is the clock format for bed/wake and scheduled times (HH:MM)
	TimeFormat = "15:04"

	// InstantFormat matches JavaScript's Date.toISOString output
	InstantFormat = "2006-01-02T15:04:05.000Z"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "daylog-"
	BackupFileSuffix = ".db"

	// Local cache
	CacheKeyPrefix        = "tracker_"
	DefaultQuotaBytes     = 5 * 1024 * 1024
	DefaultWatchLockfile  = "daylog-watch.lock"
	DefaultWatchDebounce  = 5 * time.Second
	DefaultAutoSyncPeriod = 30 * time.Minute
	DefaultResumeDelay    = 2 * time.Second

	// Sync engine
	DefaultConflictRetries = 3
	DefaultSyncConcurrency = 1
	DefaultSyncTimeout     = 2 * time.Minute

	// Remote store
	DefaultGitHubAPI     = "https://api.github.com"
	RemoteMaxRetries     = 3
	RemoteRetryBaseDelay = 500 * time.Millisecond
	RemoteDataVersion    = 1

	// Assistant
	DefaultOllamaURL           = "http://localhost:11434"
	DefaultOllamaModel         = "qwen2.5:0.5b"
	DefaultAnthropicModel      = "claude-3-5-haiku-latest"
	DefaultTemperature         = 0.7
	DefaultMaxTokens           = 500
	AssistantProbeTimeout      = 2 * time.Second
	WeeklySummaryMaxTokens     = 300
	MonthlyReflectionMaxTokens = 400
	SuggestTasksMaxTokens      = 150
)
