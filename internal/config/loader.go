package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by Load when it exists. Variables already present in
// the process environment win over the file.
const DefaultEnvFile = ".env"

const minSessionSecretLength = 32

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	SessionSecret  string
	SessionTTL     time.Duration
	Timezone       string
	Location       *time.Location
	AdminName      string
	AdminPIN       string
	LogLevel       string
	LogFormat      string
	LogFile        string
	LogMaxSizeMB   int
	LogMaxBackups  int
	MetricsEnabled bool

	// RuleHorizonDays bounds how far past today a recurring rule may end.
	RuleHorizonDays int
}

// Load reads DefaultEnvFile when present and then parses the process environment.
func Load() (Config, error) {
	return LoadWithEnvFile(DefaultEnvFile)
}

// LoadWithEnvFile is Load with an explicit env file. An empty path or a
// missing file is ignored.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting localized error messages for missing entries.
func LoadWithEnvFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("環境ファイルを読み込めません: %s: %w", path, err)
		}
	}

	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "scheduler.db",
		SessionTTL:     12 * time.Hour,
		Timezone:       "UTC",
		Location:       time.UTC,
		AdminName:      "admin",
		AdminPIN:       "0000",
		LogLevel:       "info",
		LogFormat:      "json",
		LogMaxSizeMB:   100,
		LogMaxBackups:  3,
		MetricsEnabled: true,

		RuleHorizonDays: 366,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("SCHEDULER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("SCHEDULER_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := env("SCHEDULER_SESSION_SECRET"); secret == "" {
		missing = append(missing, "SCHEDULER_SESSION_SECRET")
	} else if len(secret) < minSessionSecretLength {
		invalid = append(invalid, "SCHEDULER_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := env("SCHEDULER_SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "SCHEDULER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if tz := env("SCHEDULER_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_TIMEZONE")
		} else {
			cfg.Timezone = tz
			cfg.Location = loc
		}
	}

	if name := env("SCHEDULER_ADMIN_NAME"); name != "" {
		cfg.AdminName = name
	}

	if pin := env("SCHEDULER_ADMIN_PIN"); pin != "" {
		if !isPIN(pin) {
			invalid = append(invalid, "SCHEDULER_ADMIN_PIN")
		} else {
			cfg.AdminPIN = pin
		}
	}

	if level := env("SCHEDULER_LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
		}
	}

	if format := env("SCHEDULER_LOG_FORMAT"); format != "" {
		switch strings.ToLower(format) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(format)
		default:
			invalid = append(invalid, "SCHEDULER_LOG_FORMAT")
		}
	}

	cfg.LogFile = env("SCHEDULER_LOG_FILE")

	if value := env("SCHEDULER_LOG_MAX_SIZE_MB"); value != "" {
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			invalid = append(invalid, "SCHEDULER_LOG_MAX_SIZE_MB")
		} else {
			cfg.LogMaxSizeMB = size
		}
	}

	if value := env("SCHEDULER_LOG_MAX_BACKUPS"); value != "" {
		backups, err := strconv.Atoi(value)
		if err != nil || backups < 0 {
			invalid = append(invalid, "SCHEDULER_LOG_MAX_BACKUPS")
		} else {
			cfg.LogMaxBackups = backups
		}
	}

	if value := env("SCHEDULER_METRICS_ENABLED"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_METRICS_ENABLED")
		} else {
			cfg.MetricsEnabled = enabled
		}
	}

	if value := env("SCHEDULER_RULE_HORIZON_DAYS"); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			invalid = append(invalid, "SCHEDULER_RULE_HORIZON_DAYS")
		} else {
			cfg.RuleHorizonDays = days
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func isPIN(value string) bool {
	if len(value) != 4 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
