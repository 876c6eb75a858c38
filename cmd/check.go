package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sshmux/sshmux/pkg/ops"
)

var checkHosts []string

var checkCmd = &cobra.Command{
	Use:   "check [config]",
	Short: "Check the connection to every configured host",
	Long: `Connect to every host listed in the fleet configuration file
and probe the health of each control channel.

By default the command expects a "sshmux.yml" config file
in the current directory. You may override this by passing
a path to the configuration file as a CLI argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		opts := []ops.Option{
			ops.WithLogger(&logger),
		}

		// Use manual override for config path if provided.
		if len(args) == 1 {
			opts = append(opts, ops.WithConfigPath(args[0]))
		}
		if len(checkHosts) > 0 {
			opts = append(opts, ops.WithHosts(checkHosts...))
		}

		results, err := ops.Check(opts...)
		if err != nil {
			return err
		}

		unhealthy := 0
		for _, result := range results {
			if result.Err != nil {
				unhealthy++
				logger.Error().Str("host", result.Host).Err(result.Err).Msg("Connection unhealthy")
				continue
			}

			logger.Info().Str("host", result.Host).Msg("Connection healthy")
		}

		if unhealthy > 0 {
			return fmt.Errorf("%d of %d hosts unhealthy", unhealthy, len(results))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringSliceVar(&checkHosts, "hosts", nil, "limit the check to the named hosts")

	rootCmd.AddCommand(checkCmd)
}
