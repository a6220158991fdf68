package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/remotedeskd/remotedeskd/internal/logging"
)

var log = logging.L("config")

// Config holds remotedeskd's runtime settings, loaded from YAML with
// REMOTEDESK_-prefixed environment variable overrides.
type Config struct {
	ListenPort int    `mapstructure:"listen_port"`
	CertPath   string `mapstructure:"cert_path"`
	KeyPath    string `mapstructure:"key_path"`
	WebRoot    string `mapstructure:"web_root"`

	Codec          string `mapstructure:"codec"`
	BitrateKbps    int    `mapstructure:"bitrate_kbps"`
	FPS            int    `mapstructure:"fps"`
	EncoderThreads int    `mapstructure:"encoder_threads"`

	AuthToken  string `mapstructure:"auth_token"`
	MaxClients int    `mapstructure:"max_clients"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

func Default() *Config {
	return &Config{
		ListenPort:     8443,
		WebRoot:        "/var/lib/remotedeskd/web",
		Codec:          "vp8",
		BitrateKbps:    2000,
		FPS:            30,
		EncoderThreads: 2,
		MaxClients:     8,
		LogLevel:       "info",
		LogFormat:      "text",
		LogMaxSizeMB:   50,
		LogMaxBackups:  5,
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("REMOTEDESK")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("listen_port", cfg.ListenPort)
	viper.Set("cert_path", cfg.CertPath)
	viper.Set("key_path", cfg.KeyPath)
	viper.Set("web_root", cfg.WebRoot)
	viper.Set("codec", cfg.Codec)
	viper.Set("bitrate_kbps", cfg.BitrateKbps)
	viper.Set("fps", cfg.FPS)
	viper.Set("encoder_threads", cfg.EncoderThreads)
	viper.Set("max_clients", cfg.MaxClients)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "config.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	if err := viper.WriteConfigAs(cfgPath); err != nil {
		return err
	}

	// Config may embed cert paths and an auth token; keep it owner-only.
	return os.Chmod(cfgPath, 0600)
}

func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "remotedeskd", "data")
	case "darwin":
		return "/Library/Application Support/remotedeskd/data"
	default:
		return "/var/lib/remotedeskd"
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "remotedeskd")
	case "darwin":
		return "/Library/Application Support/remotedeskd"
	default:
		return "/etc/remotedeskd"
	}
}
