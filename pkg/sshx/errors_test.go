package sshx

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterpretSSHError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		cause  error
		text   string
	}{
		{
			name:   "could not resolve",
			stderr: "ssh: Could not resolve hostname x: Name or service not known",
			cause:  nil,
			text:   "Could not resolve hostname x: Name or service not known",
		},
		{
			name:   "connection refused",
			stderr: "ssh: connect to host h port 22: Connection refused",
			cause:  syscall.ECONNREFUSED,
			text:   "connect to host h port 22: Connection refused",
		},
		{
			name:   "permission denied",
			stderr: "ssh: user@host: Permission denied (publickey).",
			cause:  syscall.EACCES,
			text:   "user@host: Permission denied (publickey).",
		},
		{
			// On some platforms "Permission denied" after a "connect to
			// host" phase means the network is unreachable, not that
			// authentication failed.
			name:   "permission denied while connecting",
			stderr: "ssh: connect to host h port 22: Permission denied (publickey).",
			cause:  nil,
			text:   "connect to host h port 22: Permission denied (publickey).",
		},
		{
			name:   "network unreachable",
			stderr: "ssh: connect to host h port 22: Network is unreachable",
			cause:  nil,
			text:   "connect to host h port 22: Network is unreachable",
		},
		{
			name:   "unmatched text keeps default",
			stderr: "ssh: something unexpected happened",
			cause:  syscall.ECONNABORTED,
			text:   "something unexpected happened",
		},
		{
			name:   "unmatched detail keeps default",
			stderr: "ssh: connect to host h port 22: No route to host",
			cause:  syscall.ECONNABORTED,
			text:   "connect to host h port 22: No route to host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := interpretSSHError(tt.stderr)

			require.Equal(t, KindConnect, err.Kind)
			require.Equal(t, tt.text, err.Stderr)
			if tt.cause == nil {
				require.Nil(t, err.Err)
			} else {
				require.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestInterpretSSHErrorStripsKnownHostsWarning(t *testing.T) {
	stderr := "ssh: Warning: Permanently added 'login.csail.mit.edu,128.52.131.0' (ECDSA) to the list of known hosts.\r\n" +
		"tester@login.csail.mit.edu: Permission denied (publickey,gssapi-keyex,gssapi-with-mic,password,keyboard-interactive)."

	err := interpretSSHError(stderr)

	require.Equal(t, KindConnect, err.Kind)
	require.ErrorIs(t, err, syscall.EACCES)

	// The warning line is dropped, the remainder is kept verbatim.
	require.Equal(t,
		"tester@login.csail.mit.edu: Permission denied (publickey,gssapi-keyex,gssapi-with-mic,password,keyboard-interactive).",
		err.Stderr)
}

func TestInterpretSSHErrorWarningOnly(t *testing.T) {
	err := interpretSSHError("ssh: Warning: Permanently added 'h' (ED25519) to the list of known hosts.")

	require.Equal(t, KindConnect, err.Kind)
	require.ErrorIs(t, err, syscall.ECONNABORTED)
	require.Empty(t, err.Stderr)
}

func TestErrorMessages(t *testing.T) {
	err := &Error{Kind: KindDisconnected}
	require.Equal(t, "the connection to the remote host was severed", err.Error())

	err = &Error{Kind: KindConnect, Err: syscall.ECONNREFUSED, Stderr: "connect to host h port 22: Connection refused"}
	require.Contains(t, err.Error(), "failed to connect to the remote host")
	require.Contains(t, err.Error(), "Connection refused")

	require.Equal(t, "master", KindMaster.String())
	require.Equal(t, "spawn", KindSpawn.String())
}
