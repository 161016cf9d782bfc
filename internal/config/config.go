package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr         string
		Mode         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	Database struct {
		Driver string
		Path   string
	}
	Mongo struct {
		URI      string
		Database string
		Timeout  time.Duration
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
	}
	Push struct {
		Enabled     bool
		Endpoint    string
		AccessToken string
		Workers     int
		QueueSize   int
		Timeout     time.Duration
	}
	RateLimit struct {
		AuthPerMinute int
		AuthBurst     int
	}
}

// Production reports whether the server runs in production mode.
func (c Config) Production() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("POSTBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.readtimeout", "15s")
	v.SetDefault("server.writetimeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/postboard.db")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "postboard")
	v.SetDefault("mongo.timeout", "10s")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 7*24*60)
	v.SetDefault("push.enabled", false)
	v.SetDefault("push.endpoint", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("push.accesstoken", "")
	v.SetDefault("push.workers", 4)
	v.SetDefault("push.queuesize", 256)
	v.SetDefault("push.timeout", "10s")
	v.SetDefault("ratelimit.authperminute", 20)
	v.SetDefault("ratelimit.authburst", 5)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth jwt secret is required (POSTBOARD_AUTH_JWTSECRET)")
	}
	switch c.Database.Driver {
	case "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
