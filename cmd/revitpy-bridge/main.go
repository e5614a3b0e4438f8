// Package main is the revitpy-bridge command.
package main

import (
	stdErrors "errors"
	"fmt"
	"os"

	"github.com/aj-geddes/revitpy-sub005/internal/command"
	"github.com/urfave/cli/v2"
)

func main() {
	app := command.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr cli.ExitCoder
		if stdErrors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}
