package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string        `yaml:"env" env:"APP_ENV" env-default:"local"`
	StoragePath string        `yaml:"storage_path" env:"STORAGE_PATH" env-default:"pulsepoll.db"`
	Session     SessionConfig `yaml:"session"`
	Game        GameConfig    `yaml:"game"`
}

type SessionConfig struct {
	SyncInterval time.Duration `yaml:"sync_interval" env-default:"1s"`
	HistoryLimit int           `yaml:"history_limit" env-default:"50"`
}

type GameConfig struct {
	MoodJournalLimit int `yaml:"mood_journal_limit" env-default:"10"`
}

func Load(path string) *Config {
	var config Config
	err := cleanenv.ReadConfig(path, &config)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &config
}
