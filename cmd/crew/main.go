// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the crew CLI: it loads a crew file, builds the
// agents it describes and asks the root agent questions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, a := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	if terr := a.teardown(ctx); terr != nil && err == nil {
		err = terr
	}
	if err != nil {
		printError(cmd.ErrOrStderr(), err, a.flags.JSON)
		stop()
		os.Exit(1)
	}
}
