package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DotEnvVar names the variable that points at an alternative .env file.
const DotEnvVar = "GOPHGUARD_DOTENV"

// parseEnv loads an optional .env file into the process environment and
// then overlays every GOPHGUARD_* variable that is set onto config.
// Variables already present in the environment win over the .env file.
func parseEnv(config *Config) error {
	path := os.Getenv(DotEnvVar)
	if path == "" {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return cleanenv.ReadEnv(config)
}
