package main

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debug("The .env file not found.")
	}
	configureLogging(os.Getenv("LOG_LEVEL"))

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func configureLogging(level string) {
	log.SetOutput(os.Stderr)
	if level == "" {
		log.SetLevel(log.WarnLevel)
		return
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using warn")
		lvl = log.WarnLevel
	}
	log.SetLevel(lvl)
}
