package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr string
	PushAddr string

	RedisURL    string
	DatabaseURL string

	ArchiveAsync            bool
	ArchiveQueueConcurrency int

	JWTSecret string
	JWTTTL    time.Duration

	RobotPreset string
	RoomTTL     time.Duration

	SpectatorLimitDefault   int
	BaseSecondsDefault      int
	IncrementSecondsDefault int

	MessagesLang string
	MessagesDir  string
}

// Load reads the environment, after an optional .env in the working
// directory. Malformed numbers and booleans fall back to the defaults.
func Load() (*AppConfig, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files. Missing files are skipped and
// variables already in the environment win.
func LoadFiles(files ...string) (*AppConfig, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, err
		}
	}

	cfg := &AppConfig{
		HTTPAddr:                ":8080",
		PushAddr:                ":8081",
		ArchiveQueueConcurrency: 4,
		JWTTTL:                  72 * time.Hour,
		RobotPreset:             "random",
		RoomTTL:                 24 * time.Hour,
		SpectatorLimitDefault:   50,
		BaseSecondsDefault:      300,
		IncrementSecondsDefault: 5,
		MessagesLang:            "en",
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := env("PUSH_ADDR"); v != "" {
		cfg.PushAddr = v
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")

	if v := env("ARCHIVE_ASYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ArchiveAsync = b
		}
	}
	positiveInt("ARCHIVE_QUEUE_CONCURRENCY", &cfg.ArchiveQueueConcurrency)

	cfg.JWTSecret = env("JWT_SECRET")
	if v := env("JWT_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.JWTTTL = time.Duration(n) * time.Hour
		}
	}

	if v := env("ROBOT_PRESET"); v != "" {
		cfg.RobotPreset = v
	}
	if v := env("ROOM_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RoomTTL = time.Duration(n) * time.Hour
		}
	}

	positiveInt("SPECTATOR_LIMIT_DEFAULT", &cfg.SpectatorLimitDefault)
	positiveInt("BASE_SECONDS_DEFAULT", &cfg.BaseSecondsDefault)
	if v := env("INCREMENT_SECONDS_DEFAULT"); v != "" {
		// 0초 증분 허용
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.IncrementSecondsDefault = n
		}
	}

	if v := env("MESSAGES_LANG"); v != "" {
		cfg.MessagesLang = v
	}
	cfg.MessagesDir = env("MESSAGES_DIR")

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.ArchiveAsync && cfg.RedisURL == "" {
		return nil, errors.New("ARCHIVE_ASYNC requires REDIS_URL")
	}
	if cfg.ArchiveAsync && cfg.DatabaseURL == "" {
		return nil, errors.New("ARCHIVE_ASYNC requires DATABASE_URL")
	}

	return cfg, nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func positiveInt(key string, dst *int) {
	if v := env(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
