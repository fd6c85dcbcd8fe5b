package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/dealprobe/dealprobe/pkg/cli"
)

func main() {
	// Optional .env bootstrap; a missing file is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
