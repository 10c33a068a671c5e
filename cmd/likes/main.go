// Package main provides the entry point for the likes CLI.
package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/colthorp/likes-cli-go/internal/cli"
)

func main() {
	cli.Execute()
}
