package main

import (
	"os"

	"github.com/wonny/b3lake/backend/cmd/lake/commands"
)

// main is the entry point for the lake CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/lake [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
