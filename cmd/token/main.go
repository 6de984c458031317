package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/logger"

	"raffle-admin/internal/auth"
	"raffle-admin/internal/config"
)

// Prints an operator token for the admin API.
func main() {
	defer logger.Init("raffle-token", true, false, io.Discard).Close()

	operatorID := flag.Uint("operator", 0, "operator id")
	email := flag.String("email", "", "operator email")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *operatorID == 0 {
		logger.Fatal("-operator is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	auth.InitJWT(cfg.App.JWTSecret)

	token, err := auth.GenerateToken(*operatorID, *email, *ttl)
	if err != nil {
		logger.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
