// Package config provides user configuration management for mbl-cli.
//
// This package manages a YAML-based configuration file holding discovery
// preferences (window length, service type, backend) and the device chosen
// with "mbl-cli select". The file follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/mbl-cli/config.yaml or $HOME/.config/mbl-cli/config.yaml
//   - macOS: $HOME/.config/mbl-cli/config.yaml
//   - Windows: %LOCALAPPDATA%\mbl-cli\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SelectDevice(device)
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for initialization. File operations
// are protected by a mutex and writes are atomic.
package config
