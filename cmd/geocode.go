package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evtrip/connectors/mapbox"
	"github.com/kilianp07/evtrip/infra/logger"
)

func newGeocodeCmd(cfgPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "geocode <address>",
		Short: "Print address suggestions as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgPath)
			if err != nil {
				return err
			}
			c, err := cfg.Routing.Client(mapbox.WithLimit(limit), mapbox.WithLogger(logger.New("mapbox")))
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			places, err := c.Geocode(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(places) == 0 {
				return fmt.Errorf("%w for %q", mapbox.ErrNoPlace, query)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, p := range places {
				if err := enc.Encode(p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of suggestions")
	return cmd
}
