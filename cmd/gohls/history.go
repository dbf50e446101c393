package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/datallboy/gohls/internal/infra/config"
	"github.com/datallboy/gohls/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs from the history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return runHistory(cmd.Context(), cfg, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of runs to show, 0 for all")
	cmd.Flags().String("store", "", "Run history store: sqlite or postgres")

	return cmd
}

func runHistory(ctx context.Context, cfg *config.Config, limit int) error {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("history needs a store; set store.driver to sqlite or postgres")
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tSEGMENTS\tFAILED\tSIZE\tURL")
	for _, run := range runs {
		s := run.Snapshot()
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			s.ID,
			s.Status,
			humanize.Time(s.CreatedAt),
			s.Summary.Decided(), s.Summary.Total,
			s.Summary.Failed,
			humanize.Bytes(uint64(s.Summary.Bytes)),
			s.PlaylistURL,
		)
	}
	return w.Flush()
}
