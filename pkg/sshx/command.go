package sshx

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"strings"
)

// Command is a remote command being prepared or run through a Session.
// The API is modeled after os/exec.Cmd, since ssh also attempts to make
// the remote process behave as much as possible like a local command.
// Unlike a local command though, running a Command can fail even if the
// remote program executed successfully, since there is a fallible
// network in between.
//
// Stdin, stdout and stderr all default to being discarded rather than
// inherited, since the expected use is automation.
type Command struct {
	session *Session
	cmd     *exec.Cmd
	err     error
}

// Session returns the session the command runs through.
func (c *Command) Session() *Session {
	return c.session
}

// Arg appends a single argument to the remote command.
func (c *Command) Arg(arg string) *Command {
	c.cmd.Args = append(c.cmd.Args, arg)
	return c
}

// Args appends multiple arguments to the remote command.
func (c *Command) Args(args ...string) *Command {
	c.cmd.Args = append(c.cmd.Args, args...)
	return c
}

// Stdin connects the remote command's standard input to the reader.
func (c *Command) Stdin(r io.Reader) *Command {
	c.cmd.Stdin = r
	return c
}

// Stdout connects the remote command's standard output to the writer.
func (c *Command) Stdout(w io.Writer) *Command {
	c.cmd.Stdout = w
	return c
}

// Stderr connects the remote command's standard error to the writer.
func (c *Command) Stderr(w io.Writer) *Command {
	c.cmd.Stderr = w
	return c
}

// StdinPipe returns a pipe that is connected to the remote command's
// standard input once it is spawned.
func (c *Command) StdinPipe() (io.WriteCloser, error) {
	return c.cmd.StdinPipe()
}

// StdoutPipe returns a pipe that is connected to the remote command's
// standard output once it is spawned.
func (c *Command) StdoutPipe() (io.ReadCloser, error) {
	return c.cmd.StdoutPipe()
}

// StderrPipe returns a pipe that is connected to the remote command's
// standard error once it is spawned.
func (c *Command) StderrPipe() (io.ReadCloser, error) {
	return c.cmd.StderrPipe()
}

// Spawn starts the remote command and returns a handle to the running
// process without waiting for it to complete.
func (c *Command) Spawn() (*RemoteChild, error) {
	if c.err != nil {
		return nil, c.err
	}

	if err := c.cmd.Start(); err != nil {
		return nil, &Error{Kind: KindSpawn, Err: err}
	}

	return &RemoteChild{session: c.session, cmd: c.cmd}, nil
}

// Output describes the result of a finished remote command.
type Output struct {
	// Stdout holds the captured standard output of the remote command.
	Stdout []byte
	// Stderr holds the captured standard error of the remote command.
	Stderr []byte
	// ExitStatus is the exit status the remote command terminated with.
	ExitStatus int
}

// Success reports whether the remote command exited with status zero.
func (o *Output) Success() bool {
	return o.ExitStatus == 0
}

// Output runs the remote command, waits for it to complete and
// collects its output. Output streams that were redirected via the
// builder methods are not captured. A remote command that exits with a
// non-zero status is not an error; inspect Output.ExitStatus instead.
func (c *Command) Output() (*Output, error) {
	if c.err != nil {
		return nil, c.err
	}

	var stdout, stderr bytes.Buffer
	if c.cmd.Stdout == nil {
		c.cmd.Stdout = &stdout
	}
	if c.cmd.Stderr == nil {
		c.cmd.Stderr = &stderr
	}

	status, err := runAndReap(c.cmd, &stderr)
	if err != nil {
		return nil, err
	}

	return &Output{
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
		ExitStatus: status,
	}, nil
}

// Status runs the remote command, waits for it to complete and returns
// its exit status. Output is discarded unless redirected via the
// builder methods.
func (c *Command) Status() (int, error) {
	if c.err != nil {
		return 0, c.err
	}

	return runAndReap(c.cmd, nil)
}

// runAndReap waits for the local ssh client and maps its exit status.
// Status 255 is the client's reserved signal for a connection-layer
// failure, everything else is the status of the remote command.
func runAndReap(cmd *exec.Cmd, stderr *bytes.Buffer) (int, error) {
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exit *exec.ExitError
	if !errors.As(err, &exit) {
		return 0, &Error{Kind: KindRemote, Err: err}
	}

	status := exit.ExitCode()
	if status == 255 {
		diagnostics := ""
		if stderr != nil {
			diagnostics = strings.TrimSpace(stderr.String())
		}
		return 0, &Error{Kind: KindDisconnected, Stderr: diagnostics}
	}

	return status, nil
}
