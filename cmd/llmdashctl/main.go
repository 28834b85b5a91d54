package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var version = "dev"

// loadEnvFiles sources ~/.llmdash/env and ./.env without overriding
// variables already present in the process environment.
func loadEnvFiles() {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".llmdash", "env"))
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func main() {
	loadEnvFiles()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
