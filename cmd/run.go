package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sshmux/sshmux/pkg/sshx"
)

var runUser string
var runPort uint16
var runKeyfile string
var runTimeout uint
var runKnownHosts string

var runCmd = &cobra.Command{
	Use:   "run <destination> <command> [args...]",
	Short: "Run a command on a remote host",
	Long: `Establish a multiplexed SSH session to the destination, run
a single command through it and print the command's output.
The process exits with the exit status of the remote command.

The destination may be specified as "[user@]host" or as a
URI of the form "ssh://[user@]host[:port]".`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		policy, err := sshx.ParseKnownHosts(runKnownHosts)
		if err != nil {
			return err
		}

		user, host, port := sshx.ParseDestination(args[0])
		if runUser != "" {
			user = runUser
		}
		if runPort != 0 {
			port = runPort
		}

		builder := sshx.NewSessionBuilder().
			KnownHostsCheck(policy).
			Logger(&logger)
		if user != "" {
			builder.User(user)
		}
		if port != 0 {
			builder.Port(port)
		}
		if runKeyfile != "" {
			builder.Keyfile(runKeyfile)

			if fingerprint, err := sshx.KeyFingerprint(runKeyfile); err == nil {
				logger.Debug().Str("fingerprint", fingerprint).Msg("Using public key authentication")
			}
		}
		if runTimeout > 0 {
			builder.ConnectTimeout(time.Duration(runTimeout) * time.Second)
		}

		session, err := builder.Connect(host)
		if err != nil {
			return err
		}

		output, err := session.Command(args[1], args[2:]...).Output()
		if err != nil {
			session.Close()
			return err
		}

		os.Stdout.Write(output.Stdout)
		os.Stderr.Write(output.Stderr)

		if err := session.Close(); err != nil {
			return err
		}

		if !output.Success() {
			os.Exit(output.ExitStatus)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runUser, "login", "l", "", "user to log in as")
	runCmd.Flags().Uint16VarP(&runPort, "port", "p", 0, "port to connect on")
	runCmd.Flags().StringVarP(&runKeyfile, "keyfile", "i", "", "identity file to authenticate with")
	runCmd.Flags().UintVarP(&runTimeout, "timeout", "t", 0, "connection timeout in seconds")
	runCmd.Flags().StringVarP(&runKnownHosts, "known-hosts", "k", "add", "host key policy (strict, add, accept)")

	rootCmd.AddCommand(runCmd)
}
