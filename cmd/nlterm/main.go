package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/nlterm/nlterm/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code := cli.Execute(ctx, version)
	stop()
	os.Exit(code)
}
