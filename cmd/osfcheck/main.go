package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		exitCode := 1
		var withCode interface{ ExitCode() int }
		if errors.As(err, &withCode) {
			exitCode = withCode.ExitCode()
		}
		var quiet exitCodeError
		if !errors.As(err, &quiet) || quiet.err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(exitCode)
	}
}
