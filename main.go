package main

import (
	"os"

	"jira-issue-sync/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
