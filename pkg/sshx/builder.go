package sshx

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// KnownHosts specifies how the key fingerprint of a remote host
// is verified against the known hosts file.
type KnownHosts uint8

const (
	// KnownHostsAdd accepts the key of a host that is not yet listed
	// in the known hosts file and adds it. Keys of known hosts must
	// still match. Corresponds to "ssh -o StrictHostKeyChecking=accept-new".
	KnownHostsAdd KnownHosts = iota
	// KnownHostsStrict rejects connections to hosts whose key does not
	// match the known hosts file. Unknown hosts are rejected as well.
	// Corresponds to "ssh -o StrictHostKeyChecking=yes".
	KnownHostsStrict
	// KnownHostsAccept accepts whatever key the host provides and adds
	// it to the known hosts file.
	// Corresponds to "ssh -o StrictHostKeyChecking=no".
	KnownHostsAccept
)

// option returns the ssh configuration option for the policy.
func (k KnownHosts) option() string {
	switch k {
	case KnownHostsStrict:
		return "StrictHostKeyChecking=yes"
	case KnownHostsAccept:
		return "StrictHostKeyChecking=no"
	}
	return "StrictHostKeyChecking=accept-new"
}

// ParseKnownHosts maps a configuration string to a host key policy.
// The empty string maps to the default policy, KnownHostsAdd.
func ParseKnownHosts(policy string) (KnownHosts, error) {
	switch policy {
	case "", "add", "accept-new":
		return KnownHostsAdd, nil
	case "strict", "yes":
		return KnownHostsStrict, nil
	case "accept", "no":
		return KnownHostsAccept, nil
	}
	return KnownHostsAdd, errors.New("unknown host key policy: " + policy)
}

// SessionBuilder accumulates connection configuration prior to the
// one-time handshake that establishes a Session. A builder is consumed
// by Connect and must not be reused afterwards.
type SessionBuilder struct {
	user           string
	port           string
	keyfile        string
	connectTimeout string
	knownHosts     KnownHosts
	logger         *zerolog.Logger
	consumed       bool
}

// NewSessionBuilder creates a builder with default settings: no user,
// port or keyfile override, the KnownHostsAdd host key policy and a
// no-op logger.
func NewSessionBuilder() *SessionBuilder {
	logger := zerolog.Nop()

	return &SessionBuilder{
		logger: &logger,
	}
}

// User sets the user to log in as (ssh -l).
func (b *SessionBuilder) User(user string) *SessionBuilder {
	b.user = user
	return b
}

// Port sets the port to connect on (ssh -p).
func (b *SessionBuilder) Port(port uint16) *SessionBuilder {
	b.port = strconv.Itoa(int(port))
	return b
}

// Keyfile sets the identity file to authenticate with (ssh -i).
func (b *SessionBuilder) Keyfile(path string) *SessionBuilder {
	b.keyfile = path
	return b
}

// KnownHostsCheck sets the host key policy. See KnownHosts.
func (b *SessionBuilder) KnownHostsCheck(policy KnownHosts) *SessionBuilder {
	b.knownHosts = policy
	return b
}

// ConnectTimeout sets the connection timeout (ssh -o ConnectTimeout).
// The timeout is passed on in whole seconds, any sub-second remainder
// is ignored.
func (b *SessionBuilder) ConnectTimeout(d time.Duration) *SessionBuilder {
	b.connectTimeout = strconv.FormatInt(int64(d/time.Second), 10)
	return b
}

// Logger sets the logger used by the builder and the resulting Session.
func (b *SessionBuilder) Logger(logger *zerolog.Logger) *SessionBuilder {
	b.logger = logger
	return b
}

// masterArgs assembles the argument vector for the handshake: open a
// control master on the rendezvous socket, background after
// authentication, run no remote command, persist the channel and
// disable all interactive prompts.
func (b *SessionBuilder) masterArgs(socket, destination string) []string {
	args := []string{
		"-S", socket,
		"-M", "-f", "-N",
		"-o", "ControlPersist=yes",
		"-o", "BatchMode=yes",
		"-o", b.knownHosts.option(),
	}

	if b.connectTimeout != "" {
		args = append(args, "-o", "ConnectTimeout="+b.connectTimeout)
	}
	if b.port != "" {
		args = append(args, "-p", b.port)
	}
	if b.user != "" {
		args = append(args, "-l", b.user)
	}
	if b.keyfile != "" {
		args = append(args, "-i", b.keyfile)
	}

	return append(args, destination)
}

// Connect performs the handshake and establishes a Session to the host
// at the given destination. If connecting requires interactive
// authentication based on standard input, such as reading a password,
// the connection fails. Consider setting up keypair-based
// authentication instead.
func (b *SessionBuilder) Connect(destination string) (*Session, error) {
	if b.consumed {
		return nil, errors.New("sshx: session builder already consumed")
	}
	b.consumed = true

	dir, err := os.MkdirTemp("", "sshmux")
	if err != nil {
		return nil, &Error{Kind: KindMaster, Err: err}
	}
	socket := filepath.Join(dir, "master")

	b.logger.Debug().Str("destination", destination).Str("socket", socket).Msg("Establishing control master")

	init := exec.Command("ssh", b.masterArgs(socket, destination)...)

	// The backgrounded master inherits the stderr descriptor, so wiring
	// up a bytes.Buffer would leave a copying goroutine blocked for the
	// lifetime of the master. Hand the process a raw pipe instead and
	// only read from it once the handshake has failed, which guarantees
	// that no writer is left.
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, &Error{Kind: KindSpawn, Err: err}
	}
	init.Stderr = stderrW

	// Spawn and immediately wait, because the process forks to the
	// background once the connection is authenticated.
	if err := init.Start(); err != nil {
		stderrW.Close()
		stderrR.Close()
		os.RemoveAll(dir)
		return nil, &Error{Kind: KindSpawn, Err: err}
	}
	stderrW.Close()
	waitErr := init.Wait()

	// A wait failure that is not an exit status leaves no process
	// state behind to inspect.
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		stderrR.Close()
		os.RemoveAll(dir)
		return nil, &Error{Kind: KindSpawn, Err: waitErr}
	}

	if init.ProcessState.ExitCode() == 255 {
		// This is the ssh command's way of telling us that the
		// connection failed.
		diagnostics, _ := io.ReadAll(stderrR)
		stderrR.Close()
		os.RemoveAll(dir)
		return nil, interpretSSHError(string(diagnostics))
	}

	if waitErr != nil {
		stderrR.Close()
		os.RemoveAll(dir)
		return nil, &Error{Kind: KindSpawn, Err: waitErr}
	}

	b.logger.Debug().Str("destination", destination).Msg("Control master established")

	session := &Session{
		ctl:    dir,
		addr:   destination,
		logger: b.logger,
		master: &masterHandle{
			state:  init.ProcessState,
			stderr: stderrR,
		},
	}

	// Implicit cleanup for sessions that go out of scope without an
	// explicit Close. It funnels into the same idempotent termination
	// routine, with errors discarded since no caller remains to
	// observe them.
	runtime.SetFinalizer(session, (*Session).finalize)

	return session, nil
}
