package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evtrip/config"
	"github.com/kilianp07/evtrip/connectors/mapbox"
	"github.com/kilianp07/evtrip/core/trip"
	"github.com/kilianp07/evtrip/infra/logger"
)

type tripFlags struct {
	req      trip.Request
	from, to string
}

func (f *tripFlags) bind(cmd *cobra.Command, required bool) {
	cmd.Flags().Float64Var(&f.req.DistanceKM, "distance", 0, "trip distance in km")
	cmd.Flags().Float64Var(&f.req.SpeedKMH, "speed", 0, "average speed in km/h")
	cmd.Flags().Float64Var(&f.req.RangeKM, "range", 0, "range on a full charge in km")
	cmd.Flags().Float64Var(&f.req.RechargeMinutes, "recharge", 0, "minutes per recharge stop")
	cmd.Flags().StringVar(&f.from, "from", "", "departure address, resolves --distance by road")
	cmd.Flags().StringVar(&f.to, "to", "", "arrival address")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsMutuallyExclusive("distance", "from")
	if required {
		for _, name := range []string{"speed", "range"} {
			_ = cmd.MarkFlagRequired(name)
		}
		cmd.MarkFlagsOneRequired("distance", "from")
	}
}

// routed reports whether the distance comes from --from/--to.
func (f *tripFlags) routed() bool { return f.from != "" }

// resolveDistance replaces the distance with the road distance between the
// two addresses.
func (f *tripFlags) resolveDistance(cmd *cobra.Command, cfg *config.Config) error {
	c, err := cfg.Routing.Client(mapbox.WithLogger(logger.New("mapbox")))
	if err != nil {
		return err
	}
	route, err := c.Distance(cmd.Context(), f.from, f.to)
	if err != nil {
		return fmt.Errorf("resolve distance: %w", err)
	}
	f.req.DistanceKM = route.DistanceKM
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "route %s -> %s: %skm, about %dmin of driving\n",
		f.from, f.to, strconv.FormatFloat(route.DistanceKM, 'f', -1, 64), route.DurationMinutes)
	return err
}

func newComputeCmd(cfgPath *string) *cobra.Command {
	var (
		flags   tripFlags
		summary bool
		policy  string
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a trip time locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("policy") || flags.routed() {
				cfg, err := loadConfig(cmd, *cfgPath)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("policy") {
					policy = cfg.Trip.Policy
				}
				if flags.routed() {
					if err := flags.resolveDistance(cmd, cfg); err != nil {
						return err
					}
				}
			}
			p, err := trip.ParsePolicy(policy)
			if err != nil {
				return err
			}
			calc := trip.NewCalculator(p, logger.New("compute-command"))
			out := cmd.OutOrStdout()
			if summary {
				s, err := calc.Summarize(flags.req)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, s)
				return err
			}
			hours, err := calc.Compute(flags.req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, strconv.FormatFloat(hours, 'f', -1, 64))
			return err
		},
	}
	flags.bind(cmd, true)
	cmd.Flags().BoolVar(&summary, "summary", false, "print the detailed summary")
	cmd.Flags().StringVar(&policy, "policy", trip.PolicyStrict.String(), "validation policy: strict or speed_range")
	return cmd
}
