package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evtrip/auth"
	"github.com/kilianp07/evtrip/infra/logger"
	"github.com/kilianp07/evtrip/soap"
)

func newCallCmd(cfgPath *string) *cobra.Command {
	var (
		flags    tripFlags
		endpoint string
		summary  bool
		legacy   bool
		ping     bool
		timeout  time.Duration
		creds    auth.Conf
	)
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Call a running trip service over SOAP",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if summary && legacy {
				return fmt.Errorf("--summary and --legacy are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			hc := &http.Client{Timeout: timeout}
			if creds.Enabled() {
				hc.Transport = auth.NewClientCred(creds).Transport(nil)
			}
			c := soap.NewClient(endpoint,
				soap.WithHTTPClient(hc),
				soap.WithLogger(logger.New("soap-client")))
			out := cmd.OutOrStdout()

			if ping {
				if !c.Ping(ctx) {
					return fmt.Errorf("service at %s is unreachable", endpoint)
				}
				_, err := fmt.Fprintln(out, "ok")
				return err
			}
			if flags.routed() {
				cfg, err := loadConfig(cmd, *cfgPath)
				if err != nil {
					return err
				}
				if err := flags.resolveDistance(cmd, cfg); err != nil {
					return err
				}
			}
			if summary {
				s, err := c.DetailedSummary(ctx, flags.req)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, s)
				return err
			}
			call := c.CalculateTripTime
			if legacy {
				call = c.Calculate
			}
			hours, err := call(ctx, flags.req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, strconv.FormatFloat(hours, 'f', -1, 64))
			return err
		},
	}
	flags.bind(cmd, false)
	cmd.Flags().StringVar(&endpoint, "endpoint", "http://127.0.0.1:8000", "service endpoint")
	cmd.Flags().BoolVar(&summary, "summary", false, "request the detailed summary")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "use the legacy calculate operation")
	cmd.Flags().BoolVar(&ping, "ping", false, "only check that the service answers")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	cmd.Flags().StringVar(&creds.AuthURL, "token-url", "", "OAuth2 token endpoint of the service gateway")
	cmd.Flags().StringVar(&creds.ClientID, "client-id", "", "OAuth2 client id")
	cmd.Flags().StringVar(&creds.ClientSecret, "client-secret", "", "OAuth2 client secret")
	cmd.Flags().StringSliceVar(&creds.Scopes, "scope", nil, "OAuth2 scopes")
	return cmd
}
