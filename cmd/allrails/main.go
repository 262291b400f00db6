// allrails is the command line client for managing and viewing payment pages.
package main

import (
	"os"

	"github.com/DanstheMan1981/allrails/internal/cli"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
