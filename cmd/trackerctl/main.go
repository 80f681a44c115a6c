package main

import (
	"os"

	"freelance-tracker/internal/cli"
)

func main() {
	if err := cli.RootCmd(cli.PostgresOpener).Execute(); err != nil {
		os.Exit(1)
	}
}
