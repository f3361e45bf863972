package main

import (
	"fmt"
	"os"

	"github.com/tbourn/go-wine-scanner/internal/cmd"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0" ./cmd/winescan
var version = "dev"

func main() {
	if err := cmd.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "winescan:", err)
		os.Exit(1)
	}
}
