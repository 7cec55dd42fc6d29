package main

import (
	"fmt"
	"os"

	"github.com/adammathes/epubnorm/internal/cli"
)

var (
	version   = "0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cmd := cli.NewRootCommand(version, commit, buildDate)
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	// Exit codes: 0=ok, 1=verification errors, 2=fatal
	os.Exit(cli.ExitCode(err))
}
