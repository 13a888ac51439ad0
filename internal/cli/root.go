// Package cli команды smc-savesync: serve, pending, clear
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions общие флаги всех команд
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"
}

// ValidFormats допустимые форматы вывода
var ValidFormats = []string{"text", "json"}

// NewRootCommand корневая команда; без подкоманды запускает сервис
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "smc-savesync",
		Short: "Durable save queue for the provider dashboard",
		Long: `smc-savesync keeps provider dashboard edits in a durable local queue
and syncs them to the marketplace backend with retries and backoff.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.toml", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewPendingCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))

	return cmd
}
