package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV      = "CONFIG_FILE"
	defaultConfigFile  = "/config/cadenza.yaml"
	requiredTagValue   = "true"
	requiredTagKey     = "required"
	koanfTagKey        = "koanf"
	koanfKeyDelimiter  = "."
	envVarPrefixIgnore = ""
)

// Config is loaded from (in increasing priority) struct defaults, the YAML
// file named by CONFIG_FILE, and environment variables named after the
// upper-cased keys.
type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`

	RemoteURL       string        `koanf:"remote_url" required:"true"`
	RemoteToken     string        `koanf:"remote_token"`
	RemoteSectionID string        `koanf:"remote_section_id" default:"1"`
	RemoteTimeout   time.Duration `koanf:"remote_timeout" default:"30s"`

	ArtworkCacheDir      string `koanf:"artwork_cache_dir" default:"/cache/artwork"`
	ArtworkCacheMaxBytes int64  `koanf:"artwork_cache_max_bytes" default:"536870912"`
	ArtworkThumbnailSize int    `koanf:"artwork_thumbnail_size" default:"300"`
	ArtworkWarmOnRefresh bool   `koanf:"artwork_warm_on_refresh"`

	ServerHost string `koanf:"server_host" default:"0.0.0.0"`
	ServerPort int    `koanf:"server_port" default:"3689"`

	SyncIntervalMinutes int `koanf:"sync_interval_minutes" default:"60"`
	SyncRunsToKeep      int `koanf:"sync_runs_to_keep" default:"20"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(koanfKeyDelimiter)

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	// Only keys the struct knows about are read from the environment, so an
	// unrelated variable can never shadow a file value.
	known := knownKeys()
	err := k.Load(env.Provider(envVarPrefixIgnore, koanfKeyDelimiter, func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config backed by an in-memory database and a dummy
// remote.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.RemoteURL = "http://127.0.0.1:32400"
	cfg.ArtworkCacheDir = os.TempDir()
	return cfg
}

func knownKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		keys[keyFor(t.Field(i))] = struct{}{}
	}
	return keys
}

func keyFor(f reflect.StructField) string {
	if tag := f.Tag.Get(koanfTagKey); tag != "" {
		return tag
	}
	return toSnakeCase(f.Name)
}

func checkRequired(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get(requiredTagKey) != requiredTagValue {
			continue
		}
		if v.Field(i).IsZero() {
			key := keyFor(f)
			return errors.Errorf("missing required config: %s (%s)", strings.ToUpper(key), key)
		}
	}
	return nil
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
