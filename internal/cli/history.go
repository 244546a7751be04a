package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vocallocal/robust-chunker/internal/store"
	"github.com/vocallocal/robust-chunker/pkg/logger"
)

// HistoryCmd creates the history command, which lists recent runs from the
// configured run-history database.
func HistoryCmd(env *Env) *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List recent runs from the run-history database",
		Example: `  chunker history -n 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(env, configPath, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default: robust-chunker.toml if present)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}

func runHistory(env *Env, configPath string, limit int) error {
	cfg, err := env.ConfigLoader.Load(configPath, env.Getenv)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if cfg.Storage.SQLitePath == "" {
		return fmt.Errorf("%w: no storage.sqlite_path configured", ErrInvalidConfiguration)
	}

	st, err := env.StoreOpener.Open(cfg.Storage.SQLitePath, logger.Nop())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	lister, ok := st.(runLister)
	if !ok {
		return fmt.Errorf("store does not support listing runs")
	}
	runs, err := lister.RecentRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(env.Stdout, "No runs recorded.")
		return nil
	}

	for _, r := range runs {
		status := "FAILED"
		if r.OverallSuccess {
			status = "OK"
		}
		fmt.Fprintf(env.Stdout, "#%d  %s  %s  %d/%d chunks  %s policy  %.1fs\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			status,
			r.Succeeded, r.ChunkCount,
			r.Policy,
			r.ElapsedSeconds)
		fmt.Fprintf(env.Stdout, "    %s\n", r.Source)
	}
	return nil
}

// runLister is satisfied by *store.RunStore.
type runLister interface {
	RecentRuns(limit int) ([]store.RunRecord, error)
}

var _ runLister = (*store.RunStore)(nil)
