package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sshmux/sshmux/pkg/ops"
)

var (
	fleetConfig string
	fleetHosts  []string
)

var fleetCmd = &cobra.Command{
	Use:   "fleet <command> [args...]",
	Short: "Run a command on every configured host",
	Long: `Run a single command on every host listed in the fleet
configuration file. Each host is reached through its own
multiplexed SSH session, so each host authenticates once
no matter how often the command is invoked.

By default the command expects a "sshmux.yml" config file
in the current directory. You may override this with the
--config flag.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		opts := []ops.Option{
			ops.WithLogger(&logger),
		}
		if fleetConfig != "" {
			opts = append(opts, ops.WithConfigPath(fleetConfig))
		}
		if len(fleetHosts) > 0 {
			opts = append(opts, ops.WithHosts(fleetHosts...))
		}

		results, err := ops.Run(args[0], args[1:], opts...)
		if err != nil {
			return err
		}

		failed := 0
		for _, result := range results {
			if result.Err != nil {
				failed++
				logger.Error().Str("host", result.Host).Err(result.Err).Msg("Command failed")
				continue
			}

			if !result.Output.Success() {
				failed++
				logger.Error().Str("host", result.Host).Int("status", result.Output.ExitStatus).Msg("Command failed")
			}

			fmt.Printf("=== %s\n", result.Host)
			os.Stdout.Write(result.Output.Stdout)
			os.Stderr.Write(result.Output.Stderr)
		}

		if failed > 0 {
			return fmt.Errorf("command failed on %d of %d hosts", failed, len(results))
		}
		return nil
	},
}

func init() {
	fleetCmd.Flags().StringVarP(&fleetConfig, "config", "c", "", "path to the fleet configuration file")
	fleetCmd.Flags().StringSliceVar(&fleetHosts, "hosts", nil, "limit the command to the named hosts")

	rootCmd.AddCommand(fleetCmd)
}
