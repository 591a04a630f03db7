package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/startup"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/startup/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, reading configuration from the environment")
	}

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := startup.NewLogger(cfg.LogLevel, cfg.LogFilePath)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	server := startup.NewServer(cfg, logger)
	server.Start()
}
