package main

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/matzehuels/uvbrew/internal/cli"
	"github.com/matzehuels/uvbrew/pkg/buildinfo"
)

func main() {
	if err := run(context.Background()); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stdout, os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	// fang prints the error and overrides root.Version, so the version
	// string is passed explicitly.
	return fang.Execute(
		ctx,
		root,
		fang.WithVersion(buildinfo.Short()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	)
}
