package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ARMmbed/mbl-cli/internal/config"
	"github.com/ARMmbed/mbl-cli/internal/device"
	"github.com/ARMmbed/mbl-cli/internal/discovery"
	"github.com/ARMmbed/mbl-cli/internal/logging"
	"github.com/ARMmbed/mbl-cli/internal/textlist"
	"github.com/ARMmbed/mbl-cli/internal/ui"
	"github.com/ARMmbed/mbl-cli/internal/version"
)

// Replaced in tests with an in-memory backend and a non-terminal session.
var (
	newBrowser    = discovery.NewBrowser
	isInteractive = ui.IsInteractive
)

// app holds the global flags and the loaded registry for one invocation.
type app struct {
	logLevel   string
	backend    string
	timeout    int
	configPath string

	registry *config.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mbl-cli",
		Short: "Mbed Linux OS device discovery",
		Long: `Discover Mbed Linux OS devices on the local network.

Devices are found by browsing for SSH services advertised over multicast
DNS that carry the "mblos" TXT property. Use 'list' to see what is on the
network and 'select' to remember a device for later commands.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Initialize(a.logLevel); err != nil {
				return err
			}
			return a.loadRegistry()
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	flags.StringVar(&a.backend, "backend", "", "mDNS backend (zeroconf, hashicorp); overrides the config file")
	flags.IntVar(&a.timeout, "timeout", 0, "Discovery window in seconds; overrides the config file")
	flags.StringVar(&a.configPath, "config", "", "Path to the config file (default is the per-user config directory)")

	root.AddCommand(
		a.listCmd(),
		a.selectCmd(),
		a.deviceCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) loadRegistry() error {
	var err error
	if a.configPath != "" {
		a.registry, err = config.LoadFrom(a.configPath)
	} else {
		a.registry, err = config.LoadRegistry()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

func (a *app) saveRegistry() error {
	if a.configPath != "" {
		return a.registry.SaveTo(a.configPath)
	}
	return a.registry.Save()
}

// window is the discovery window after flag overrides
func (a *app) window() time.Duration {
	if a.timeout > 0 {
		return time.Duration(a.timeout) * time.Second
	}
	return a.registry.Preferences.Window()
}

func (a *app) newEngine() (*discovery.Engine, error) {
	prefs := a.registry.Preferences
	backend := prefs.Backend
	if a.backend != "" {
		backend = a.backend
	}

	browser, err := newBrowser(backend, a.window())
	if err != nil {
		return nil, err
	}

	engine := discovery.NewEngine(browser)
	engine.Window = a.window()
	if prefs.ServiceType != "" {
		engine.ServiceType = prefs.ServiceType
	}

	logging.Debug("Discovery configured",
		zap.String("backend", backend),
		zap.String("service_type", engine.ServiceType),
		zap.Duration("window", engine.Window),
	)
	return engine, nil
}

// discover runs one window, printing the expectation line first and any
// skipped advertisements afterwards. It fails with ErrNoDevices when
// nothing was found. The returned list numbers the devices as
// "name: address" in the order they were accepted.
func (a *app) discover(ctx context.Context, out io.Writer) ([]discovery.Device, *textlist.IndexedList, error) {
	engine, err := a.newEngine()
	if err != nil {
		return nil, nil, err
	}

	fmt.Fprintf(out, "Discovering devices. This will take up to %d seconds.\n", int(engine.Window/time.Second))

	devices, err := engine.Discover(ctx, nil)
	if errors.Is(err, discovery.ErrOpen) {
		return nil, nil, err
	}
	if errs := multierr.Errors(err); len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		ui.NewPrinter(out).PrintWarning("Some advertisements were skipped", messages...)
	}

	if len(devices) == 0 {
		return nil, nil, discovery.ErrNoDevices
	}

	list := textlist.New()
	for _, d := range devices {
		list.Append(d.String())
	}
	return devices, list, nil
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List Mbed Linux OS devices on the network",
		Long: `Browse the local network for the discovery window and print every
Mbed Linux OS device found, numbered in the order they answered.`,
		Example: `  mbl-cli list
  mbl-cli list --timeout 10 --backend hashicorp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			_, list, err := a.discover(cmd.Context(), out)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, list.String())
			return nil
		},
	}
}

func (a *app) selectCmd() *cobra.Command {
	var (
		index int
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Discover devices and remember the one to use",
		Long: `Discover devices and store the chosen one in the config file.

On a terminal an interactive picker is shown. Use --index to choose by the
number 'mbl-cli list' prints, e.g. from a script.`,
		Example: `  mbl-cli select
  mbl-cli select --index 2 --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var (
				chosen discovery.Device
				err    error
			)
			if index > 0 || !isInteractive() {
				chosen, err = a.selectByIndex(cmd.Context(), out, index)
			} else {
				chosen, err = a.selectInteractive(cmd.Context())
			}
			if err != nil {
				return err
			}

			if prev := a.registry.SelectedDevice; prev != nil && !yes && isInteractive() &&
				(prev.Name != chosen.Name || prev.Address != chosen.Address) {
				question := fmt.Sprintf("Replace selected device %s (%s)?", prev.Name, prev.Address)
				if !ui.Confirm(cmd.InOrStdin(), out, question) {
					return nil
				}
			}

			a.registry.SelectDevice(chosen)
			if err := a.saveRegistry(); err != nil {
				return fmt.Errorf("failed to save selection: %w", err)
			}

			ui.NewPrinter(out).PrintSuccess("Device selected",
				ui.Detail{Key: "Name:", Value: chosen.Name},
				ui.Detail{Key: "Address:", Value: chosen.Address},
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "Select the Nth device found (1-based) without prompting")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Replace an existing selection without asking")
	return cmd
}

func (a *app) selectByIndex(ctx context.Context, out io.Writer, index int) (discovery.Device, error) {
	if index <= 0 {
		return discovery.Device{}, fmt.Errorf("not running in a terminal: pass --index")
	}

	devices, list, err := a.discover(ctx, out)
	if err != nil {
		return discovery.Device{}, err
	}
	fmt.Fprintln(out, list.String())

	if _, err := list.Get(index); err != nil {
		return discovery.Device{}, err
	}
	return devices[index-1], nil
}

func (a *app) selectInteractive(ctx context.Context) (discovery.Device, error) {
	engine, err := a.newEngine()
	if err != nil {
		return discovery.Device{}, err
	}

	scan := func(ctx context.Context) ([]discovery.Device, error) {
		devices, err := engine.Discover(ctx, nil)
		if err == nil && len(devices) == 0 {
			err = discovery.ErrNoDevices
		}
		return devices, err
	}
	return ui.RunPicker(ctx, scan, engine.Window)
}

func (a *app) deviceCmd() *cobra.Command {
	var addr, hostname string

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Show the device commands will act on",
		Long: `Print the device later commands will use: the address given with
--address if any, otherwise the device stored by 'mbl-cli select'.`,
		Example: `  mbl-cli device
  mbl-cli device --address fe80::1%eth0 --hostname bench-board`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := device.Resolve(a.registry, addr, hostname)
			if err != nil {
				return err
			}
			if d.Name == "" {
				fmt.Fprintln(cmd.OutOrStdout(), d.Address)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "address", "", "IPv4 or IPv6 address of the device")
	cmd.Flags().StringVar(&hostname, "hostname", "", "Name to use for the device")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the config file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := yaml.Marshal(a.registry)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := a.configPath
				if path == "" {
					var err error
					if path, err = config.GetConfigPath(); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear-selection",
			Short: "Forget the selected device",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.registry.ClearSelection()
				return a.saveRegistry()
			},
		},
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mbl-cli %s\n", version.Full())
		},
	}
}
