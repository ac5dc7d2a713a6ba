package main

// ============================================================================
// Package: main
// File: main.go
// Purpose: schedsim entry point. All command logic lives in internal/cli.
// ============================================================================

import (
	"fmt"
	"os"

	"github.com/ChuLiYu/schedsim/internal/cli"
)

// Injected at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=$(git rev-parse HEAD)" ./cmd/schedsim
var (
	version = ""
	commit  = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", r)
			os.Exit(2)
		}
	}()

	rootCmd := cli.BuildCLI()
	if version != "" {
		rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
