package utils

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const envFilename = ".env"

// InitEnvironmentVariables loads the local .env file when present.
// Production deployments set real environment variables instead.
func InitEnvironmentVariables() error {
	if os.Getenv("ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	if _, err := os.Stat(envFilename); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(envFilename); err != nil {
		return err
	}

	return nil
}
