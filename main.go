package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/PArns/v4.api.park.fan-sub004/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
