// Mbl-cli discovers Mbed Linux OS devices on the local network.
//
// Devices advertise an SSH service over multicast DNS with an "mblos" TXT
// property. mbl-cli browses for them for a fixed window, lists what it
// found, and remembers the device the user selects for later commands.
//
// Usage:
//
//	mbl-cli [command] [flags]
//
// See 'mbl-cli --help' for available commands.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ARMmbed/mbl-cli/internal/logging"
	"github.com/ARMmbed/mbl-cli/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	logging.Sync()
	if err != nil {
		ui.NewPrinter(os.Stderr).PrintError("mbl-cli failed", err)
		stop()
		os.Exit(1)
	}
}
