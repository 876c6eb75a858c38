package sshx

import (
	"strings"
	"syscall"
)

// Kind describes where in the pipeline a failure occurred.
type Kind uint8

const (
	// KindMaster indicates that the master connection failed.
	KindMaster Kind = iota + 1
	// KindConnect indicates that the initial connection to the
	// remote host could not be established.
	KindConnect
	// KindSpawn indicates that the local ssh command could not be run.
	KindSpawn
	// KindRemote indicates a failure while interacting with the
	// running remote command.
	KindRemote
	// KindDisconnected indicates that the connection to the remote
	// host was severed. This is a best-effort diagnosis and may also
	// mean that a remote process exited with status 255. Call
	// Session.Check to verify.
	KindDisconnected
)

// String returns a short name for the failure kind.
func (k Kind) String() string {
	switch k {
	case KindMaster:
		return "master"
	case KindConnect:
		return "connect"
	case KindSpawn:
		return "spawn"
	case KindRemote:
		return "remote"
	case KindDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Error is a failure that occurred while interacting with a remote
// process. It carries a coarse failure kind, an optional underlying
// OS-level cause and, where available, the verbatim diagnostic output
// of the ssh client.
type Error struct {
	Kind   Kind
	Err    error
	Stderr string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindMaster:
		msg = "the master connection failed"
	case KindConnect:
		msg = "failed to connect to the remote host"
	case KindSpawn:
		msg = "failed to run the local ssh command"
	case KindRemote:
		msg = "the remote command failed"
	case KindDisconnected:
		msg = "the connection to the remote host was severed"
	default:
		msg = "unknown failure"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// interpretSSHError turns the string-only diagnostics of the ssh client
// into something a little more handleable. This is inherently heuristic
// since the phrasing of the messages is the only signal we get, so
// unmatched text degrades to a generic "connection aborted" cause. The
// expected format is:
//
//	ssh: <phase>: <detail>
func interpretSSHError(stderr string) *Error {
	msg := strings.TrimSpace(stderr)
	msg = strings.TrimPrefix(msg, "ssh: ")

	if strings.HasPrefix(msg, "Warning: Permanently added ") {
		// The host was added to the known hosts file. Drop the warning
		// line and classify whatever follows it.
		if _, rest, found := strings.Cut(msg, "\r\n"); found {
			msg = rest
		} else {
			msg = ""
		}
	}

	// A nil cause marks an unclassified I/O failure for which no
	// portable errno exists.
	var cause error = syscall.ECONNABORTED

	phase, detail, split := strings.Cut(msg, ": ")
	if strings.HasPrefix(phase, "Could not resolve") {
		// Matching on the phase is more stable across platforms than
		// matching on the "Name or service not known" detail.
		cause = nil
	}

	if split {
		switch {
		case detail == "Network is unreachable":
			cause = nil
		case detail == "Connection refused":
			cause = syscall.ECONNREFUSED
		case strings.Contains(detail, "Permission denied ("):
			if strings.HasPrefix(phase, "connect to host") {
				// On some platforms this phrasing means the network is
				// unreachable, not that authentication failed.
				cause = nil
			} else {
				cause = syscall.EACCES
			}
		}
	}

	return &Error{Kind: KindConnect, Err: cause, Stderr: msg}
}
