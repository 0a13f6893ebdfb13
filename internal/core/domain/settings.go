package domain

import (
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// StoreBackend selects where session records are persisted.
type StoreBackend string

// Available store backends.
const (
	// StoreSQLite keeps sessions in ~/.saai/data/saai.db.
	StoreSQLite StoreBackend = "sqlite"

	// StoreRedis shares sessions through a redis server.
	StoreRedis StoreBackend = "redis"

	// StoreMemory keeps sessions for the life of the process.
	StoreMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreSQLite, StoreRedis, StoreMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreSQLite:
		return "SQLite (local file)"
	case StoreRedis:
		return "Redis (shared)"
	case StoreMemory:
		return "Memory (not persisted)"
	default:
		return unknownDescription
	}
}

// BackendSettings locate the remote automation service.
type BackendSettings struct {
	BaseURL       string        `env:"SAAI_BACKEND_URL" validate:"required,url"`
	RenewPath     string        `env:"SAAI_RENEW_PATH" validate:"required,startswith=/"`
	SilentPath    string        `env:"SAAI_SILENT_PATH" validate:"required,startswith=/"`
	ExtendPath    string        `env:"SAAI_EXTEND_PATH" validate:"required,startswith=/"`
	StartPath     string        `env:"SAAI_START_PATH" validate:"required,startswith=/"`
	HeartbeatPath string        `env:"SAAI_HEARTBEAT_PATH" validate:"required,startswith=/"`
	ChatPath      string        `env:"SAAI_CHAT_PATH" validate:"required,startswith=/"`
	TaskPath      string        `env:"SAAI_TASK_PATH" validate:"required,startswith=/"`
	TokenFields   []string      `env:"SAAI_TOKEN_FIELDS" env-separator:"," validate:"min=1,dive,required"`
	Timeout       time.Duration `env:"SAAI_TIMEOUT" validate:"gt=0"`
	RatePerSecond float64       `env:"SAAI_RATE" validate:"gt=0"`
}

// URL joins the base URL and a path.
func (b BackendSettings) URL(path string) string {
	return strings.TrimRight(b.BaseURL, "/") + path
}

// GrantPath returns the endpoint path for a recovery strategy.
func (b BackendSettings) GrantPath(kind GrantKind) string {
	switch kind {
	case GrantRefresh:
		return b.RenewPath
	case GrantSilentReauth:
		return b.SilentPath
	case GrantSessionExtension:
		return b.ExtendPath
	default:
		return ""
	}
}

// EndpointPath returns the path for a business endpoint.
func (b BackendSettings) EndpointPath(e Endpoint) string {
	switch e {
	case EndpointChat:
		return b.ChatPath
	case EndpointTask:
		return b.TaskPath
	default:
		return ""
	}
}

// RelaySettings tune the outbound retry policy.
type RelaySettings struct {
	AuthRejectStatuses []int  `env:"SAAI_AUTH_REJECT_STATUSES" env-separator:"," validate:"min=1,dive,gte=400,lt=500"`
	FallbackReplies    bool   `env:"SAAI_FALLBACK_REPLIES"`
	Listen             string `env:"SAAI_LISTEN" validate:"required,hostname_port"`
}

// IsAuthRejection reports whether status is in the auth-rejection set.
func (r RelaySettings) IsAuthRejection(status int) bool {
	for _, s := range r.AuthRejectStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// OAuthSettings describe the identity provider authorization endpoint.
type OAuthSettings struct {
	ClientID     string        `env:"SAAI_OAUTH_CLIENT_ID"`
	AuthURL      string        `env:"SAAI_OAUTH_AUTH_URL" validate:"required,url"`
	RedirectURL  string        `env:"SAAI_OAUTH_REDIRECT_URL" validate:"required,url"`
	Scopes       []string      `env:"SAAI_OAUTH_SCOPES" env-separator:"," validate:"min=1"`
	CallbackPort int           `env:"SAAI_OAUTH_CALLBACK_PORT" validate:"gte=0,lte=65535"`
	Timeout      time.Duration `env:"SAAI_OAUTH_TIMEOUT" validate:"gt=0"`
}

// StoreSettings select the session store.
type StoreSettings struct {
	Backend   StoreBackend `env:"SAAI_STORE" validate:"oneof=sqlite redis memory"`
	RedisAddr string       `env:"SAAI_REDIS_ADDR" validate:"required_if=Backend redis"`
}

// Settings is the full application configuration.
type Settings struct {
	Backend   BackendSettings
	Relay     RelaySettings
	OAuth     OAuthSettings
	Store     StoreSettings
	Scheduler SchedulerConfig
}

// Default endpoint values, matching the hosted automation service.
const (
	DefaultBaseURL     = "https://connector.saai.dev/webhook"
	DefaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	DefaultRedirectURL = "https://connector.saai.dev/webhook/oauth/callback"
	DefaultListen      = "127.0.0.1:7878"
	DefaultTimeout     = 90 * time.Second
)

// DefaultTokenFields are the accepted token field names, in priority order.
func DefaultTokenFields() []string {
	return []string{"jwt", "jwtToken", "token"}
}

// DefaultScopes are the permissions requested at sign-in.
func DefaultScopes() []string {
	return []string{
		"email",
		"profile",
		"openid",
		"https://www.googleapis.com/auth/gmail.readonly",
		"https://www.googleapis.com/auth/gmail.send",
		"https://www.googleapis.com/auth/gmail.labels",
		"https://www.googleapis.com/auth/gmail.compose",
		"https://www.googleapis.com/auth/gmail.modify",
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Backend: BackendSettings{
			BaseURL:       DefaultBaseURL,
			RenewPath:     "/session/renew",
			SilentPath:    "/oauth/silent-refresh",
			ExtendPath:    "/oauth/extend-session",
			StartPath:     "/oauth/start",
			HeartbeatPath: "/oauth/heartbeat",
			ChatPath:      "/Chatbot-Nishant",
			TaskPath:      "/Tak-Management",
			TokenFields:   DefaultTokenFields(),
			Timeout:       DefaultTimeout,
			RatePerSecond: 2,
		},
		Relay: RelaySettings{
			AuthRejectStatuses: []int{401, 402, 403},
			FallbackReplies:    false,
			Listen:             DefaultListen,
		},
		OAuth: OAuthSettings{
			AuthURL:     DefaultAuthURL,
			RedirectURL: DefaultRedirectURL,
			Scopes:      DefaultScopes(),
			Timeout:     5 * time.Minute,
		},
		Store: StoreSettings{
			Backend:   StoreSQLite,
			RedisAddr: "localhost:6379",
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// AllStoreBackends returns all available store backends.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{StoreSQLite, StoreRedis, StoreMemory}
}
