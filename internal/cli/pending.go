package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/m04kA/SMC-SaveSync/internal/config"
	"github.com/m04kA/SMC-SaveSync/internal/domain"
	"github.com/m04kA/SMC-SaveSync/internal/infra/kvstore"
	"github.com/m04kA/SMC-SaveSync/internal/infra/storage/durablelog"
	"github.com/m04kA/SMC-SaveSync/pkg/logger"
)

// PendingItem запись журнала в выводе команды pending
type PendingItem struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	RetryCount int       `json:"retryCount"`
	MaxRetries int       `json:"maxRetries"`
	Failed     bool      `json:"failed"`
	LastError  string    `json:"lastError,omitempty"`
}

// PendingResult вывод команды pending
type PendingResult struct {
	Key    string        `json:"key"`
	Count  int           `json:"count"`
	Failed int           `json:"failed"`
	Items  []PendingItem `json:"items"`
}

// NewPendingCommand печатает содержимое журнала
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List saves waiting in the durable journal",
		Long: `Read the durable journal directly and print the saves waiting for sync.

The badger driver holds an exclusive lock: stop the service first.

Examples:
  smc-savesync pending --config ./config.toml
  smc-savesync pending --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(cmd, rootOpts)
		},
	}
}

func runPending(cmd *cobra.Command, opts *RootOptions) error {
	journal, closeStore, err := openJournal(cmd, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	ops := journal.Load()
	result := buildPendingResult(journal.Key(), ops)

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return writePendingText(cmd.OutOrStdout(), result)
}

func buildPendingResult(key string, ops []*domain.Operation) PendingResult {
	res := PendingResult{Key: key, Count: len(ops), Items: make([]PendingItem, 0, len(ops))}
	for _, op := range ops {
		failed := op.IsExhausted()
		if failed {
			res.Failed++
		}
		res.Items = append(res.Items, PendingItem{
			ID:         op.ID,
			Type:       string(op.Type),
			EnqueuedAt: op.EnqueuedAt,
			RetryCount: op.RetryCount,
			MaxRetries: op.MaxRetries,
			Failed:     failed,
			LastError:  op.LastError,
		})
	}
	return res
}

func writePendingText(w io.Writer, res PendingResult) error {
	if res.Count == 0 {
		_, err := fmt.Fprintln(w, "No pending saves")
		return err
	}

	fmt.Fprintf(w, "%d pending saves (%d failed)\n\n", res.Count, res.Failed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tENQUEUED\tRETRIES\tSTATE\tLAST ERROR")
	for _, it := range res.Items {
		state := "pending"
		if it.Failed {
			state = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			it.ID, it.Type, it.EnqueuedAt.Format(time.RFC3339), it.RetryCount, it.MaxRetries, state, it.LastError)
	}
	return tw.Flush()
}

// openJournal открывает хранилище из конфига; предупреждения журнала идут в stderr
func openJournal(cmd *cobra.Command, opts *RootOptions) (*durablelog.Log, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewWithWriter(cmd.ErrOrStderr(), "warn")
	if err != nil {
		return nil, nil, err
	}

	if cfg.Storage.Driver == config.StorageDriverMemory {
		return nil, nil, fmt.Errorf("storage driver %q keeps no journal outside the service", cfg.Storage.Driver)
	}

	store, err := kvstore.Open(cfg.Storage, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage: %v", err)
		}
	}
	return durablelog.New(store, cfg.Storage.Key, log), closeStore, nil
}
