// Package sshx runs commands on remote hosts through the OpenSSH
// client. All commands of a Session share a single authenticated
// connection that is multiplexed via the ControlMaster feature of ssh,
// so authentication happens once and every subsequent invocation
// attaches to the existing channel. Because the transport is the local
// ssh binary, existing client configuration such as ~/.ssh/config
// continues to apply.
//
// Only password-less authentication schemes are supported. If running
// ssh against a host requires input on standard input, the handshake
// fails; set up keypair-based authentication instead.
package sshx

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Session is a single SSH session to a remote host. Commands created
// via Command run through the shared control channel and may execute
// concurrently. When a Session is garbage collected without an
// explicit Close, the connection is severed and any errors are
// silently ignored; use Close to be alerted to teardown errors.
type Session struct {
	ctl    string
	addr   string
	logger *zerolog.Logger

	mu         sync.Mutex
	terminated bool
	master     *masterHandle
}

// masterHandle is the take-once handle to the backgrounded master
// process. The first caller to take it owns the diagnosis, later
// callers observe it already consumed.
type masterHandle struct {
	state  *os.ProcessState
	stderr *os.File
}

// ctlPath returns the rendezvous socket path of the control channel.
func (s *Session) ctlPath() string {
	return filepath.Join(s.ctl, "master")
}

// Addr returns the destination the session is connected to.
func (s *Session) Addr() string {
	return s.addr
}

// Connect establishes a Session to the remote host at the given
// destination using the provided host key policy. The destination may
// be specified as either "[user@]host" or as a URI of the form
// "ssh://[user@]host[:port]". For more options, see SessionBuilder.
func Connect(destination string, policy KnownHosts) (*Session, error) {
	user, host, port := ParseDestination(destination)

	builder := NewSessionBuilder().KnownHostsCheck(policy)
	if user != "" {
		builder.User(user)
	}
	if port != 0 {
		builder.Port(port)
	}

	return builder.Connect(host)
}

// ParseDestination splits a destination of the form "[user@]host" or
// "ssh://[user@]host[:port]" into its components. A port is only
// recognized in the URI form; if the text after the last colon is not
// a valid port number, it is left as part of the host for ssh to
// interpret. A port of zero means that no port was specified.
func ParseDestination(destination string) (user, host string, port uint16) {
	host = destination

	// Not all versions of ssh support the ssh:// form, so it is always
	// translated into the option form.
	uri := strings.HasPrefix(host, "ssh://")
	host = strings.TrimPrefix(host, "ssh://")

	if at := strings.LastIndex(host, "@"); at >= 0 {
		user = host[:at]
		host = host[at+1:]
	}

	if uri {
		if colon := strings.LastIndex(host, ":"); colon >= 0 {
			if p, err := strconv.ParseUint(host[colon+1:], 10, 16); err == nil {
				port = uint16(p)
				host = host[:colon]
			}
		}
	}

	return user, host, port
}

// Check probes the status of the underlying SSH connection. Since this
// does not run a remote command, it has a better chance of extracting
// a useful error message than a failing command.
func (s *Session) Check() error {
	s.mu.Lock()
	terminated := s.terminated
	s.mu.Unlock()
	if terminated {
		return &Error{Kind: KindDisconnected}
	}

	check := exec.Command("ssh",
		"-S", s.ctlPath(),
		"-o", "BatchMode=yes",
		"-O", "check",
		s.addr,
	)

	if err := check.Run(); err != nil {
		var exit *exec.ExitError
		if !errors.As(err, &exit) {
			return &Error{Kind: KindSpawn, Err: err}
		}

		if exit.ExitCode() == 255 {
			if masterErr := s.takeMasterError(); masterErr != nil {
				return masterErr
			}
			return &Error{Kind: KindDisconnected}
		}
	}

	return nil
}

// Command constructs a new Command that launches the program at the
// given path on the remote host, with the given arguments. If the path
// is not absolute, the PATH of the remote host is searched.
//
// The returned Command discards stdin, stdout and stderr by default;
// see the Command builder methods to change this.
func (s *Session) Command(program string, args ...string) *Command {
	// Pass -p 9 here, the "discard" port, to ensure that ssh fails fast
	// instead of establishing a fresh connection if the master
	// connection is gone.
	sshArgs := []string{
		"-S", s.ctlPath(),
		"-T",
		"-o", "BatchMode=yes",
		"-p", "9",
		s.addr,
		"--",
		program,
	}
	sshArgs = append(sshArgs, args...)

	cmd := &Command{
		session: s,
		cmd:     exec.Command("ssh", sshArgs...),
	}

	s.mu.Lock()
	if s.terminated {
		cmd.err = &Error{Kind: KindDisconnected}
	}
	s.mu.Unlock()

	return cmd
}

// Close terminates the remote connection and removes the control
// channel. It is safe to call Close more than once; the teardown is
// performed at most once.
func (s *Session) Close() error {
	runtime.SetFinalizer(s, nil)
	return s.terminate()
}

// terminate tears the control channel down at most once, no matter how
// many paths trigger it.
func (s *Session) terminate() error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return nil
	}
	// Mark terminated before interpreting the outcome so that a
	// concurrent or subsequent call never re-attempts the exit.
	s.terminated = true
	s.mu.Unlock()

	s.logger.Debug().Str("destination", s.addr).Msg("Closing control master")

	defer os.RemoveAll(s.ctl)
	defer s.dropMaster()

	exit := exec.Command("ssh",
		"-S", s.ctlPath(),
		"-o", "BatchMode=yes",
		"-O", "exit",
		s.addr,
	)

	if err := exit.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return &Error{Kind: KindSpawn, Err: err}
		}

		// The exit request ran but reported failure. If the master
		// produced an error of its own, that is the better diagnosis.
		if masterErr := s.takeMasterError(); masterErr != nil {
			return masterErr
		}

		// The master exited cleanly, so the remote end must have closed
		// the connection on its own. We asked for the connection to go
		// away, so this is not an error.
	}

	return nil
}

// finalize is the implicit cleanup path for sessions that are garbage
// collected without an explicit Close.
func (s *Session) finalize() {
	_ = s.terminate()
}

// takeMasterError takes ownership of the master handle and recovers its
// diagnostics. The handle is consumed at most once across the life of
// the session; later callers get nil and must fall back to a generic
// diagnosis.
func (s *Session) takeMasterError() *Error {
	s.mu.Lock()
	handle := s.master
	s.master = nil
	s.mu.Unlock()

	if handle == nil {
		return nil
	}

	if handle.state == nil || handle.state.Success() {
		// The master bootstrap exited cleanly, so we assume that the
		// connection was simply closed by the remote end.
		if handle.stderr != nil {
			handle.stderr.Close()
		}
		return nil
	}

	var stderr string
	if handle.stderr != nil {
		diagnostics, err := io.ReadAll(handle.stderr)
		handle.stderr.Close()
		if err != nil {
			return &Error{Kind: KindMaster, Err: err}
		}
		stderr = strings.TrimSpace(string(diagnostics))
	}

	return &Error{Kind: KindMaster, Stderr: stderr}
}

// dropMaster releases the master handle without diagnosing it.
func (s *Session) dropMaster() {
	s.mu.Lock()
	handle := s.master
	s.master = nil
	s.mu.Unlock()

	if handle != nil && handle.stderr != nil {
		handle.stderr.Close()
	}
}
