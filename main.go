// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"capture/cmd"
	"capture/internal/log"
	"capture/pkg/build"
)

// main wires build information and signal handling around the command
// line. Interrupting a command cancels its context, which stops capture and
// lets recordings be saved before exit.
func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", build.Get().Name, err)
		stop()
		os.Exit(1)
	}
}
