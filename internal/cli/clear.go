package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrNotConfirmed clear без --yes
var ErrNotConfirmed = errors.New("refusing to discard pending saves without --yes")

// ClearOptions флаги команды clear
type ClearOptions struct {
	*RootOptions
	Yes bool
}

// NewClearCommand удаляет журнал целиком
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard every save in the durable journal",
		Long: `Discard every save waiting in the durable journal. Discarded edits are lost.

Examples:
  smc-savesync clear --yes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "confirm discarding pending saves")

	return cmd
}

func runClear(cmd *cobra.Command, opts *ClearOptions) error {
	if !opts.Yes {
		return ErrNotConfirmed
	}

	journal, closeStore, err := openJournal(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	n := len(journal.Load())
	if err := journal.Clear(); err != nil {
		return fmt.Errorf("failed to clear journal: %w", err)
	}

	if opts.Format == "json" {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "{\"cleared\":%d}\n", n)
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Discarded %d pending saves\n", n)
	return err
}
