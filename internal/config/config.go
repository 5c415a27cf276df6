package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is mcpwatch's external configuration surface (spec.md §6): how to
// launch the managed child, how to rebuild it, and what to watch.
type Config struct {
	ServerCommand string            `mapstructure:"server_command" validate:"required"`
	ServerArgs    []string          `mapstructure:"server_args"`
	BuildCommand  string            `mapstructure:"build_command"`
	WatchPattern  stringOrSlice     `mapstructure:"watch_pattern" validate:"required,min=1,dive,required"`
	DebounceMs    int               `mapstructure:"debounce_ms" validate:"gte=0"`
	Cwd           string            `mapstructure:"cwd"`
	Env           map[string]string `mapstructure:"env"`
	LogLevel      string            `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	MetricsAddr   string            `mapstructure:"metrics_addr"`
	Trace         bool              `mapstructure:"trace"`
}

// stringOrSlice accepts either a single pattern string or a list of them in
// the source config, matching spec.md §6's `watch_pattern: string |
// list<string>`.
type stringOrSlice []string

func defaults() *Config {
	return &Config{
		DebounceMs: 300,
		LogLevel:   "info",
	}
}

// Load resolves configuration from (in ascending precedence): defaults, the
// config file at path (if it exists), MCPWATCH_-prefixed environment
// variables, and finally the already-bound pflag set v carries (CLI
// flags win). v is expected to have been configured by the caller (the
// run command's init binds its flags into it); Load only adds the file/env layers and
// unmarshals the result.
func Load(path string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	d := defaults()
	v.SetDefault("debounce_ms", d.DebounceMs)
	v.SetDefault("log_level", d.LogLevel)

	v.SetEnvPrefix("MCPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only takes effect for keys viper already knows about
	// (via a default, a bound flag, or an explicit BindEnv) — bind every
	// field explicitly so e.g. MCPWATCH_SERVER_COMMAND works with no config
	// file present at all.
	for _, key := range []string{
		"server_command", "server_args", "build_command", "watch_pattern",
		"debounce_ms", "cwd", "log_level", "metrics_addr", "trace",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		if info, err := os.Stat(path); err == nil {
			if perm := info.Mode().Perm(); perm&0077 != 0 {
				return nil, fmt.Errorf("config file %s has insecure permissions %o (expected 0600). Fix with: chmod 600 %s", path, perm, path)
			}
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(watchPatternHook)); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

var validate = validator.New()

// watchPatternHook lets watch_pattern be written in config/env as either a
// single glob string or a YAML list, per spec.md §6.
func watchPatternHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(stringOrSlice{}) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		return stringOrSlice{data.(string)}, nil
	default:
		return data, nil
	}
}

var _ mapstructure.DecodeHookFuncType = watchPatternHook

var envVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// ResolveEnv resolves $VAR references in env values from the process
// environment.
func ResolveEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	resolved := make(map[string]string, len(env))
	for k, v := range env {
		resolved[k] = envVarPattern.ReplaceAllStringFunc(v, func(match string) string {
			return os.Getenv(match[1:]) // strip leading $
		})
	}
	return resolved
}
