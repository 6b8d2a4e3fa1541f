// Command configdump prints the effective configuration as YAML with secrets
// masked. It reads the same config files and environment as the server.
package main

import (
	"log"
	"os"

	"schoolboard/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to read .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.WriteYAML(os.Stdout); err != nil {
		log.Fatal(err)
	}
}
