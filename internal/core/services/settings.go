package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
	"github.com/custodia-labs/saai/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// settingDef binds a config key to a Settings field.
type settingDef struct {
	key   string
	env   string
	read  func(s *domain.Settings) string
	apply func(s *domain.Settings, stored any) error
	parse func(raw string) (any, error)
}

// SettingsService layers defaults, the config file and environment overrides.
type SettingsService struct {
	configStore driven.ConfigStore
	validate    *validator.Validate
	defs        []settingDef
	byKey       map[string]settingDef
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	defs := settingDefs()
	byKey := make(map[string]settingDef, len(defs))
	for _, d := range defs {
		byKey[d.key] = d
	}
	return &SettingsService{
		configStore: configStore,
		validate:    validator.New(),
		defs:        defs,
		byKey:       byKey,
	}
}

// Get returns the effective settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()

	if s.configStore != nil {
		for _, d := range s.defs {
			stored, ok := s.configStore.Get(d.key)
			if !ok {
				continue
			}
			if err := d.apply(&settings, stored); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, d.key, err)
			}
		}
	}

	if err := cleanenv.ReadEnv(&settings); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", domain.ErrInvalidInput, err)
	}

	if err := s.validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return &settings, nil
}

// Set parses and stores a value for a known key.
func (s *SettingsService) Set(key, value string) error {
	d, ok := s.byKey[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}

	parsed, err := d.parse(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	current, err := s.Get()
	if err != nil {
		current = ptr(domain.DefaultSettings())
	}
	if err := d.apply(current, parsed); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if err := s.validate.Struct(current); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored key so its default applies.
func (s *SettingsService) Unset(key string) error {
	if _, ok := s.byKey[key]; !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}
	return s.configStore.Unset(key)
}

// List returns every known key with its effective value and source.
func (s *SettingsService) List() ([]driving.SettingValue, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	values := make([]driving.SettingValue, 0, len(s.defs))
	for _, d := range s.defs {
		source := driving.SourceDefault
		if _, ok := os.LookupEnv(d.env); ok && d.env != "" {
			source = driving.SourceEnv
		} else if s.configStore != nil {
			if _, ok := s.configStore.Get(d.key); ok {
				source = driving.SourceFile
			}
		}
		values = append(values, driving.SettingValue{
			Key:    d.key,
			Value:  d.read(settings),
			Source: source,
		})
	}
	return values, nil
}

// Keys returns every known key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(s.defs))
	for _, d := range s.defs {
		keys = append(keys, d.key)
	}
	sort.Strings(keys)
	return keys
}

// Reload re-reads the configuration file.
func (s *SettingsService) Reload() error {
	if s.configStore == nil {
		return nil
	}
	return s.configStore.Load()
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	if s.configStore == nil {
		return ""
	}
	return s.configStore.Path()
}

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyBackendBaseURL     = "backend.base_url"
	keyBackendRenewPath   = "backend.renew_path"
	keyBackendSilentPath  = "backend.silent_path"
	keyBackendExtendPath  = "backend.extend_path"
	keyBackendStartPath   = "backend.start_path"
	keyBackendHeartbeat   = "backend.heartbeat_path"
	keyBackendChatPath    = "backend.chat_path"
	keyBackendTaskPath    = "backend.task_path"
	keyBackendTokenFields = "backend.token_fields"
	keyBackendTimeout     = "backend.timeout"
	keyBackendRate        = "backend.rate_per_second"
	keyRelayRejects       = "relay.auth_reject_statuses"
	keyRelayFallback      = "relay.fallback_replies"
	keyRelayListen        = "relay.listen"
	keyOAuthClientID      = "oauth.client_id"
	keyOAuthAuthURL       = "oauth.auth_url"
	keyOAuthRedirectURL   = "oauth.redirect_url"
	keyOAuthScopes        = "oauth.scopes"
	keyOAuthCallbackPort  = "oauth.callback_port"
	keyOAuthTimeout       = "oauth.timeout"
	keyStoreBackend       = "store.backend"
	keyStoreRedisAddr     = "store.redis_addr"
	keySchedulerEnabled   = "scheduler.enabled"
)

func settingDefs() []settingDef {
	return []settingDef{
		stringSetting(keyBackendBaseURL, "SAAI_BACKEND_URL", func(s *domain.Settings) *string { return &s.Backend.BaseURL }),
		stringSetting(keyBackendRenewPath, "SAAI_RENEW_PATH", func(s *domain.Settings) *string { return &s.Backend.RenewPath }),
		stringSetting(keyBackendSilentPath, "SAAI_SILENT_PATH", func(s *domain.Settings) *string { return &s.Backend.SilentPath }),
		stringSetting(keyBackendExtendPath, "SAAI_EXTEND_PATH", func(s *domain.Settings) *string { return &s.Backend.ExtendPath }),
		stringSetting(keyBackendStartPath, "SAAI_START_PATH", func(s *domain.Settings) *string { return &s.Backend.StartPath }),
		stringSetting(keyBackendHeartbeat, "SAAI_HEARTBEAT_PATH", func(s *domain.Settings) *string { return &s.Backend.HeartbeatPath }),
		stringSetting(keyBackendChatPath, "SAAI_CHAT_PATH", func(s *domain.Settings) *string { return &s.Backend.ChatPath }),
		stringSetting(keyBackendTaskPath, "SAAI_TASK_PATH", func(s *domain.Settings) *string { return &s.Backend.TaskPath }),
		listSetting(keyBackendTokenFields, "SAAI_TOKEN_FIELDS", func(s *domain.Settings) *[]string { return &s.Backend.TokenFields }),
		durationSetting(keyBackendTimeout, "SAAI_TIMEOUT", func(s *domain.Settings) *time.Duration { return &s.Backend.Timeout }),
		floatSetting(keyBackendRate, "SAAI_RATE", func(s *domain.Settings) *float64 { return &s.Backend.RatePerSecond }),
		intListSetting(keyRelayRejects, "SAAI_AUTH_REJECT_STATUSES", func(s *domain.Settings) *[]int { return &s.Relay.AuthRejectStatuses }),
		boolSetting(keyRelayFallback, "SAAI_FALLBACK_REPLIES", func(s *domain.Settings) *bool { return &s.Relay.FallbackReplies }),
		stringSetting(keyRelayListen, "SAAI_LISTEN", func(s *domain.Settings) *string { return &s.Relay.Listen }),
		stringSetting(keyOAuthClientID, "SAAI_OAUTH_CLIENT_ID", func(s *domain.Settings) *string { return &s.OAuth.ClientID }),
		stringSetting(keyOAuthAuthURL, "SAAI_OAUTH_AUTH_URL", func(s *domain.Settings) *string { return &s.OAuth.AuthURL }),
		stringSetting(keyOAuthRedirectURL, "SAAI_OAUTH_REDIRECT_URL", func(s *domain.Settings) *string { return &s.OAuth.RedirectURL }),
		listSetting(keyOAuthScopes, "SAAI_OAUTH_SCOPES", func(s *domain.Settings) *[]string { return &s.OAuth.Scopes }),
		intSetting(keyOAuthCallbackPort, "SAAI_OAUTH_CALLBACK_PORT", func(s *domain.Settings) *int { return &s.OAuth.CallbackPort }),
		durationSetting(keyOAuthTimeout, "SAAI_OAUTH_TIMEOUT", func(s *domain.Settings) *time.Duration { return &s.OAuth.Timeout }),
		stringSetting(keyStoreBackend, "SAAI_STORE", func(s *domain.Settings) *string { return (*string)(&s.Store.Backend) }),
		stringSetting(keyStoreRedisAddr, "SAAI_REDIS_ADDR", func(s *domain.Settings) *string { return &s.Store.RedisAddr }),
		boolSetting(keySchedulerEnabled, "", func(s *domain.Settings) *bool { return &s.Scheduler.Enabled }),
		taskEnabledSetting(domain.TaskIDHeartbeat),
		taskIntervalSetting(domain.TaskIDHeartbeat),
		taskEnabledSetting(domain.TaskIDProactiveRefresh),
		taskIntervalSetting(domain.TaskIDProactiveRefresh),
	}
}

func stringSetting(key, env string, field func(*domain.Settings) *string) settingDef {
	return settingDef{
		key: key,
		env: env,
		read: func(s *domain.Settings) string {
			return *field(s)
		},
		apply: func(s *domain.Settings, stored any) error {
			v, ok := stored.(string)
			if !ok {
				return fmt.Errorf("expected string, got %T", stored)
			}
			*field(s) = v
			return nil
		},
		parse: func(raw string) (any, error) {
			return strings.TrimSpace(raw), nil
		},
	}
}

func intSetting(key, env string, field func(*domain.Settings) *int) settingDef {
	return settingDef{
		key: key,
		env: env,
		read: func(s *domain.Settings) string {
			return strconv.Itoa(*field(s))
		},
		apply: func(s *domain.Settings, stored any) error {
			n, err := toInt(stored)
			if err != nil {
				return err
			}
			*field(s) = n
			return nil
		},
		parse: func(raw string) (any, error) {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			return int64(n), err
		},
	}
}

func floatSetting(key, env string, field func(*domain.Settings) *float64) settingDef {
	return settingDef{
		key: key,
		env: env,
		read: func(s *domain.Settings) string {
			return strconv.FormatFloat(*field(s), 'f', -1, 64)
		},
		apply: func(s *domain.Settings, stored any) error {
			switch v := stored.(type) {
			case float64:
				*field(s) = v
			case int64:
				*field(s) = float64(v)
			case int:
				*field(s) = float64(v)
			default:
				return fmt.Errorf("expected number, got %T", stored)
			}
			return nil
		},
		parse: func(raw string) (any, error) {
			return strconv.ParseFloat(strings.TrimSpace(raw), 64)
		},
	}
}

func boolSetting(key, env string, field func(*domain.Settings) *bool) settingDef {
	return settingDef{
		key: key,
		env: env,
		read: func(s *domain.Settings) string {
			return strconv.FormatBool(*field(s))
		},
		apply: func(s *domain.Settings, stored any) error {
			b, ok := stored.(bool)
			if !ok {
				return fmt.Errorf("expected bool, got %T", stored)
			}
			*field(s) = b
			return nil
		},
		parse: func(raw string) (any, error) {
			return strconv.ParseBool(strings.TrimSpace(raw))
		},
	}
}

func durationSetting(key, env string, field func(*domain.Settings) *time.Duration) settingDef {
	return settingDef{
		key: key,
		env: env,
		read: func(s *domain.Settings) string {
			return field(s).String()
		},
		apply: func(s *domain.Settings, stored any) error {
			d, err := toDuration(stored)
			if err != nil {
				return err
			}
			*field(s) = d
			return nil
		},
		parse: func(raw string) (any, error) {
			d, err := time.ParseDuration(strings.TrimSpace(raw))
			if err != nil {
				return nil, err
			}
			return d.String(), nil
		},
	}
}

func listSetting(key, env string, field func(*domain.Settings) *[]string) settingDef {
	return settingDef{
		key: key,
		env: env,
		read: func(s *domain.Settings) string {
			return strings.Join(*field(s), ",")
		},
		apply: func(s *domain.Settings, stored any) error {
			list, err := toStrings(stored)
			if err != nil {
				return err
			}
			*field(s) = list
			return nil
		},
		parse: func(raw string) (any, error) {
			return splitList(raw), nil
		},
	}
}

func intListSetting(key, env string, field func(*domain.Settings) *[]int) settingDef {
	return settingDef{
		key: key,
		env: env,
		read: func(s *domain.Settings) string {
			parts := make([]string, 0, len(*field(s)))
			for _, n := range *field(s) {
				parts = append(parts, strconv.Itoa(n))
			}
			return strings.Join(parts, ",")
		},
		apply: func(s *domain.Settings, stored any) error {
			items, ok := stored.([]any)
			if !ok {
				if ints, ok := stored.([]int64); ok {
					items = make([]any, len(ints))
					for i, n := range ints {
						items[i] = n
					}
				} else {
					return fmt.Errorf("expected list, got %T", stored)
				}
			}
			out := make([]int, 0, len(items))
			for _, item := range items {
				n, err := toInt(item)
				if err != nil {
					return err
				}
				out = append(out, n)
			}
			*field(s) = out
			return nil
		},
		parse: func(raw string) (any, error) {
			parts := splitList(raw)
			out := make([]int64, 0, len(parts))
			for _, p := range parts {
				n, err := strconv.Atoi(p)
				if err != nil {
					return nil, err
				}
				out = append(out, int64(n))
			}
			return out, nil
		},
	}
}

func taskEnabledSetting(taskID string) settingDef {
	return settingDef{
		key: "scheduler." + taskID + ".enabled",
		read: func(s *domain.Settings) string {
			return strconv.FormatBool(s.Scheduler.GetTaskConfig(taskID).Enabled)
		},
		apply: func(s *domain.Settings, stored any) error {
			b, ok := stored.(bool)
			if !ok {
				return fmt.Errorf("expected bool, got %T", stored)
			}
			cfg := s.Scheduler.GetTaskConfig(taskID)
			cfg.Enabled = b
			setTaskConfig(s, taskID, cfg)
			return nil
		},
		parse: func(raw string) (any, error) {
			return strconv.ParseBool(strings.TrimSpace(raw))
		},
	}
}

func taskIntervalSetting(taskID string) settingDef {
	return settingDef{
		key: "scheduler." + taskID + ".interval",
		read: func(s *domain.Settings) string {
			return s.Scheduler.GetTaskConfig(taskID).Interval.String()
		},
		apply: func(s *domain.Settings, stored any) error {
			d, err := toDuration(stored)
			if err != nil {
				return err
			}
			if d < time.Minute {
				return fmt.Errorf("interval %s is shorter than a minute", d)
			}
			cfg := s.Scheduler.GetTaskConfig(taskID)
			cfg.Interval = d
			setTaskConfig(s, taskID, cfg)
			return nil
		},
		parse: func(raw string) (any, error) {
			d, err := time.ParseDuration(strings.TrimSpace(raw))
			if err != nil {
				return nil, err
			}
			return d.String(), nil
		},
	}
}

func setTaskConfig(s *domain.Settings, taskID string, cfg domain.TaskConfig) {
	configs := make(map[string]domain.TaskConfig, len(s.Scheduler.TaskConfigs)+1)
	for k, v := range s.Scheduler.TaskConfigs {
		configs[k] = v
	}
	configs[taskID] = cfg
	s.Scheduler.TaskConfigs = configs
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case string:
		return time.ParseDuration(strings.TrimSpace(d))
	case int64:
		return time.Duration(d) * time.Second, nil
	case int:
		return time.Duration(d) * time.Second, nil
	case time.Duration:
		return d, nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func toStrings(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case string:
		return splitList(list), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string item, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
