package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// DefaultPath is the configuration file read when no -config flag is given.
const DefaultPath = "config/config.yaml"

// EnvPrefix marks environment variables that override configuration keys,
// e.g. CFG_SERVER_PORT overrides server.port.
const EnvPrefix = "CFG_"

// Model backends understood by the inference adapter.
const (
	BackendRemote = "remote"
	BackendGocv   = "gocv"
	BackendNone   = "none"
)

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Port              int           `koanf:"port"`
	MaxUploadBytes    int64         `koanf:"maxuploadbytes"`
	PublicBaseURL     string        `koanf:"publicbaseurl"`
	AllowOrigins      []string      `koanf:"alloworigins"`
	ReadHeaderTimeout time.Duration `koanf:"readheadertimeout"`
}

// StorageConfig defines where uploads, annotated runs and the journal live.
type StorageConfig struct {
	UploadDir string `koanf:"uploaddir"`
	RunsDir   string `koanf:"runsdir"`
	DBPath    string `koanf:"dbpath"` // empty disables the upload journal
}

// ModelConfig defines the detection model backend.
type ModelConfig struct {
	Backend    string        `koanf:"backend"`
	Path       string        `koanf:"path"`
	ConfigPath string        `koanf:"configpath"`
	LabelsPath string        `koanf:"labelspath"`
	Device     string        `koanf:"device"`
	Confidence float64       `koanf:"confidence"`
	Save       bool          `koanf:"save"`
	RemoteURL  string        `koanf:"remoteurl"`
	Timeout    time.Duration `koanf:"timeout"`
	InputSize  int           `koanf:"inputsize"`
}

// LogConfig defines logger output.
type LogConfig struct {
	Dir   string `koanf:"dir"`
	Debug bool   `koanf:"debug"`
}

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Model   ModelConfig   `koanf:"model"`
	Log     LogConfig     `koanf:"log"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":              5000,
		"server.maxuploadbytes":    16 << 20,
		"server.publicbaseurl":     "",
		"server.alloworigins":      []string{"*"},
		"server.readheadertimeout": "10s",

		"storage.uploaddir": "uploads",
		"storage.runsdir":   "runs",
		"storage.dbpath":    "data/detect.db",

		"model.backend":    BackendGocv,
		"model.path":       "models/best.onnx",
		"model.configpath": "",
		"model.labelspath": "models/labels.yaml",
		"model.device":     "cpu",
		"model.confidence": 0.25,
		"model.save":       true,
		"model.remoteurl":  "http://localhost:8000",
		"model.timeout":    "60s",
		"model.inputsize":  300,

		"log.dir":   "logs",
		"log.debug": false,
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// CFG_-prefixed environment variables, in that order. A .env file in the
// working directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(strings.TrimSpace(v), ",")
		}
		return key, v
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid server.maxuploadbytes %d", c.Server.MaxUploadBytes)
	}
	if c.Model.Confidence < 0 || c.Model.Confidence > 1 {
		return fmt.Errorf("model.confidence must be within [0,1], got %v", c.Model.Confidence)
	}
	switch c.Model.Backend {
	case BackendRemote, BackendGocv, BackendNone:
	default:
		return fmt.Errorf("unknown model.backend %q", c.Model.Backend)
	}
	if c.Storage.UploadDir == "" || c.Storage.RunsDir == "" {
		return errors.New("storage.uploaddir and storage.runsdir are required")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
