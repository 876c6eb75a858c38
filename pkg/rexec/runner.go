// Package rexec provides APIs to execute commands on remote machines.
package rexec

import "github.com/sshmux/sshmux/pkg/sshx"

// Runner is the interface for running commands on a remote execution
// environment, for example through a multiplexed SSH connection.
type Runner interface {
	// Connect establishes a connection to the execution
	// environment.
	Connect() error
	// Command prepares a command to be run. It fails if no
	// connection is established.
	Command(name string, arg ...string) (*sshx.Command, error)
	// Disconnect closes the connection to the execution
	// environment.
	Disconnect() error
}
