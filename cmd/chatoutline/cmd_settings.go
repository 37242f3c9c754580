package main

import (
	"fmt"
	"os"

	"chatoutline/internal/config"
	"chatoutline/internal/messaging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// settingsCmd groups the options commands
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the stored settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  settingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY=VALUE...",
	Short: "Change settings",
	Long: `Validates and saves one or more settings. Width is clamped to 260-520
and prefixLength to 100-20000. A running panel picks the change up live.

Keys: openByDefault, width, granularity (turn|pair),
searchScope (preview|prefix|full), prefixLength.

Example:
  chatoutline settings set granularity=turn width=400`,
	Args: cobra.MinimumNArgs(1),
	RunE: settingsSet,
}

var settingsEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the settings file in $VISUAL or $EDITOR",
	Args:  cobra.NoArgs,
	RunE:  settingsEdit,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := settingsStore()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), store.Path())
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsEditCmd)
	settingsCmd.AddCommand(settingsPathCmd)
}

func printSettings(cmd *cobra.Command, s config.Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func settingsShow(cmd *cobra.Command, args []string) error {
	store, err := settingsStore()
	if err != nil {
		return err
	}
	return printSettings(cmd, store.Load())
}

func settingsSet(cmd *cobra.Command, args []string) error {
	store, err := settingsStore()
	if err != nil {
		return err
	}
	patch := config.Patch{}
	for _, arg := range args {
		key, val, err := config.ParseAssignment(arg)
		if err != nil {
			return err
		}
		patch[key] = val
	}
	s, err := store.Set(patch)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	logger.Debug("settings saved", zap.String("path", store.Path()), zap.Int("keys", len(patch)))
	return printSettings(cmd, s)
}

func settingsEdit(cmd *cobra.Command, args []string) error {
	store, err := settingsStore()
	if err != nil {
		return err
	}
	// Seed the file so the editor opens something meaningful.
	if _, err := os.Stat(store.Path()); os.IsNotExist(err) {
		d := config.Defaults()
		if _, err := store.Set(config.Patch{
			config.KeyOpenByDefault: d.OpenByDefault,
			config.KeyWidth:         d.Width,
			config.KeyGranularity:   string(d.Granularity),
			config.KeySearchScope:   string(d.SearchScope),
			config.KeyPrefixLength:  d.PrefixLength,
		}); err != nil {
			return err
		}
	}
	c, err := messaging.EditorCommand(store.Path())
	if err != nil {
		return err
	}
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
}
