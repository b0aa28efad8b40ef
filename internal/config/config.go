package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "LOCALY"
	appDirName = "localy"

	keyInstallRoot    = "install_root"
	keyInterpreter    = "interpreter"
	keyLoginScript    = "login_script"
	keyUploadScript   = "upload_script"
	keySessionMarker  = "session_marker"
	keySettleDelay    = "settle_delay"
	keyTerminateGrace = "terminate_grace"
	keyProfilePath    = "profile_path"
	keyLogLevel       = "log.level"
	keyLogFormat      = "log.format"
)

const (
	DefaultInterpreter    = "python3"
	DefaultLoginScript    = "backend_login.py"
	DefaultUploadScript   = "backend.py"
	DefaultSessionMarker  = "user_session.session"
	DefaultSettleDelay    = 1500 * time.Millisecond
	DefaultTerminateGrace = 3 * time.Second
)

type Config struct {
	InstallRoot    string
	Interpreter    string
	LoginScript    string
	UploadScript   string
	SessionMarker  string
	SettleDelay    time.Duration
	TerminateGrace time.Duration
	ProfilePath    string
	LogLevel       string
	LogFormat      string
}

// MarkerPath is where the login process leaves its session artifact.
func (c Config) MarkerPath() string {
	return filepath.Join(c.InstallRoot, c.SessionMarker)
}

// Load reads ~/.config/localy/config.toml (if present) and LOCALY_* environment overrides.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, ".config", appDirName)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyInstallRoot, filepath.Join(homeDir, ".local", "share", appDirName))
	v.SetDefault(keyInterpreter, DefaultInterpreter)
	v.SetDefault(keyLoginScript, DefaultLoginScript)
	v.SetDefault(keyUploadScript, DefaultUploadScript)
	v.SetDefault(keySessionMarker, DefaultSessionMarker)
	v.SetDefault(keySettleDelay, DefaultSettleDelay)
	v.SetDefault(keyTerminateGrace, DefaultTerminateGrace)
	v.SetDefault(keyProfilePath, filepath.Join(configDir, "profile.toml"))
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "console")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		InstallRoot:    v.GetString(keyInstallRoot),
		Interpreter:    v.GetString(keyInterpreter),
		LoginScript:    v.GetString(keyLoginScript),
		UploadScript:   v.GetString(keyUploadScript),
		SessionMarker:  v.GetString(keySessionMarker),
		SettleDelay:    v.GetDuration(keySettleDelay),
		TerminateGrace: v.GetDuration(keyTerminateGrace),
		ProfilePath:    v.GetString(keyProfilePath),
		LogLevel:       v.GetString(keyLogLevel),
		LogFormat:      v.GetString(keyLogFormat),
	}

	return normalize(cfg)
}

func normalize(cfg Config) (Config, error) {
	if strings.TrimSpace(cfg.InstallRoot) == "" {
		return Config{}, errors.New("install root is empty")
	}
	root, err := filepath.Abs(cfg.InstallRoot)
	if err != nil {
		return Config{}, fmt.Errorf("resolve install root: %w", err)
	}
	cfg.InstallRoot = filepath.Clean(root)

	if cfg.Interpreter == "" {
		return Config{}, errors.New("interpreter is empty")
	}
	if cfg.SessionMarker == "" || filepath.Base(cfg.SessionMarker) != cfg.SessionMarker {
		return Config{}, fmt.Errorf("invalid session marker name %q", cfg.SessionMarker)
	}
	if cfg.SettleDelay < 0 {
		return Config{}, fmt.Errorf("settle delay must not be negative, got %s", cfg.SettleDelay)
	}
	if cfg.TerminateGrace <= 0 {
		cfg.TerminateGrace = DefaultTerminateGrace
	}

	cfg.LoginScript = cfg.resolve(cfg.LoginScript)
	cfg.UploadScript = cfg.resolve(cfg.UploadScript)

	return cfg, nil
}

func (c Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.InstallRoot, path)
}
