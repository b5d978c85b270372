package main

import (
	"os"

	"github.com/wonny/worldmodel/cmd/worldmodel/commands"
)

// main is the entry point for the worldmodel CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/worldmodel [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
