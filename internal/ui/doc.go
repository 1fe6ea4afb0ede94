// Package ui provides terminal output for mbl-cli.
//
// Non-interactive commands print through a Printer, which renders result
// boxes with Lipgloss. The select command uses PickerModel, a Bubble Tea
// program that runs a discovery window behind a spinner and progress bar
// and then lets the user choose a device from a bubbles list.
//
// Zap logging is silent unless MBL_LOG_LEVEL or --log-level is set, so the
// styled output is not interleaved with log lines by default.
package ui
