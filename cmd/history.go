package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	corehist "github.com/kilianp07/evtrip/core/history"
	"github.com/kilianp07/evtrip/infra/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		backend string
		path    string
		since   time.Duration
		q       corehist.Query
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded trip calculations as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := history.Open(backend, map[string]any{"path": path})
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			if since > 0 {
				q.Start = time.Now().Add(-since)
			}
			recs, err := st.Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range recs {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "sqlite", "history backend: sqlite or jsonl")
	cmd.Flags().StringVar(&path, "path", "trips.db", "history database or file")
	cmd.Flags().DurationVar(&since, "since", 0, "only records newer than this duration")
	cmd.Flags().StringVar(&q.Source, "source", "", "filter by source (soap or json)")
	cmd.Flags().StringVar(&q.Operation, "operation", "", "filter by operation")
	cmd.Flags().StringVar(&q.Outcome, "outcome", "", "filter by outcome (ok or invalid)")
	cmd.Flags().IntVar(&q.Limit, "limit", 50, "maximum number of records, most recent first kept")
	return cmd
}
