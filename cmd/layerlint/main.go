package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/xkilldash9x/layerlint/cmd"
	"github.com/xkilldash9x/layerlint/internal/observability"
)

const panicLogFile = "layerlint-panic.log"

// Function variables swapped in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

func main() {
	defer handlePanic()

	// A missing .env is the normal case.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := cmd.ExitCode(cmd.Execute(ctx))
	stop()
	osExit(code)
}

// handlePanic writes the stack of an unexpected panic next to the system
// temp files and exits with cmd.ExitError.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	path := filepath.Join(os.TempDir(), panicLogFile)
	message := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(path, []byte(message), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", message)
		osExit(cmd.ExitError)
		return
	}
	fmt.Fprintf(os.Stderr, "layerlint crashed: %v\nDetails logged to %s\n", r, path)
	osExit(cmd.ExitError)
}
