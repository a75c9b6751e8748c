package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/xkilldash9x/layerlint/cmd"
)

// main is the entry point for the layerlint CLI.
func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cmd.ExitCode(cmd.Execute(ctx))
	stop()
	os.Exit(code)
}
