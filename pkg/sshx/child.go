package sshx

import (
	"errors"
	"os/exec"
)

// RemoteChild is a handle to a running remote command. Behind the
// scenes it wraps the local ssh client process corresponding to the
// spawned remote command, so its methods report on the behavior of the
// ssh client rather than on the remote process directly. Usually these
// are the same.
type RemoteChild struct {
	session *Session
	cmd     *exec.Cmd
}

// Session returns the session the remote command runs through.
func (c *RemoteChild) Session() *Session {
	return c.session
}

// Wait blocks until the remote command completes and returns its exit
// status. Like Command.Status, a status of 255 from the underlying ssh
// client is reported as a severed connection.
func (c *RemoteChild) Wait() (int, error) {
	err := c.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exit *exec.ExitError
	if !errors.As(err, &exit) {
		return 0, &Error{Kind: KindRemote, Err: err}
	}

	if exit.ExitCode() == 255 {
		return 0, &Error{Kind: KindDisconnected}
	}

	return exit.ExitCode(), nil
}

// Kill terminates the local ssh client that carries the remote
// command. The remote process itself is torn down by the remote side
// once the channel closes.
func (c *RemoteChild) Kill() error {
	if err := c.cmd.Process.Kill(); err != nil {
		return &Error{Kind: KindRemote, Err: err}
	}

	return nil
}
