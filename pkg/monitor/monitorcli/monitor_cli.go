// Package monitorcli is the cobra command tree of the rawinput-monitor
// binary.
package monitorcli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ttsuki/librawinput/pkg/monitor"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "rawinput"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type monitorProvider func() *monitor.Monitor

func NewRootCmd(configDir string) *cobra.Command {
	cfg := monitor.Config{
		DataDir:        filepath.Join(configDir, "data"),
		SettingsConfig: filepath.Join(configDir, "monitor.yml"),
	}
	rootCmd := &cobra.Command{
		Use:   "rawinput-monitor",
		Short: "Raw HID input monitor",
		Long:  `rawinput-monitor decodes raw HID input reports and prints keyboard, mouse and joystick events to the console.`,
	}
	var m *monitor.Monitor
	provider := func() *monitor.Monitor {
		return m
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&cfg.SettingsConfig, "settings", cfg.SettingsConfig, "settings file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		m, err = monitor.New(cfg, cmd.OutOrStdout())
		return err
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return m.Close()
	}
	rootCmd.AddCommand(NewRun(provider))
	rootCmd.AddCommand(NewListDevices(provider))
	rootCmd.AddCommand(NewDescribe(provider))
	rootCmd.AddCommand(NewRegistry(provider))
	return rootCmd
}

func NewRun(m monitorProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Monitor input events",
		Long:  `Listen for raw input reports and print decoded events until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m().Run(cmd.Context())
		},
	}
}

func NewListDevices(m monitorProvider) *cobra.Command {
	var (
		filter string
		asYAML bool
	)
	cmd := &cobra.Command{
		Use:   "list-devices",
		Short: "List input devices",
		Long:  `List connected input devices, optionally narrowed by a filter expression.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := m().ListDevices(cmd.Context(), filter, asYAML)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", `device filter, e.g. 'type(joystick) and vendor(0x054c)'`)
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "output YAML instead of JSON")
	return cmd
}

func NewDescribe(m monitorProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <path>",
		Short: "Describe a device",
		Long:  `Print the parsed capability table of the device at the given hidraw path.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := m().Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func NewRegistry(m monitorProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Dump the device registry",
		Long:  `Print every device this monitor has ever seen, as YAML.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m().ExportRegistry(cmd.OutOrStdout())
		},
	}
}
