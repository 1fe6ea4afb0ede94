// Package logging provides structured logging for mbl-cli.
//
// This package wraps a global zap logger with convenience functions. Logging
// is silent by default so that command output stays readable; it is enabled
// by the --log-level flag or the MBL_LOG_LEVEL environment variable.
//
// # Log Levels
//
//   - Debug: per-advertisement listener callbacks, TXT record contents
//   - Info: browse session start/stop, devices accepted
//   - Warn: advertisements rejected with an error
//   - Error: failures to open a browse session
//
// # Structured Logging
//
//	logging.Info("Device accepted",
//	    zap.String("name", "mbed-linux-os-8379"),
//	    zap.String("address", "192.168.1.20"),
//	)
//
// Discovery-specific helpers:
//
//	logging.LogServiceEvent("add", "_ssh._tcp.local.", name)
//	logging.LogBrowseSession(sessionID, "opened")
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Log output goes to stderr so it never mixes with the device list on stdout.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once initialized.
package logging
