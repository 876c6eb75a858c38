package sshx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandInvocation(t *testing.T) {
	fakeSSH(t, `exit 0`)

	session, err := NewSessionBuilder().Connect("example.com")
	require.NoError(t, err)
	defer session.Close()

	cmd := session.Command("ls", "-la").Arg("/tmp").Args("--color", "never")

	require.Equal(t, []string{
		"ssh",
		"-S", session.ctlPath(),
		"-T",
		"-o", "BatchMode=yes",
		"-p", "9",
		"example.com",
		"--",
		"ls", "-la", "/tmp", "--color", "never",
	}, cmd.cmd.Args)
}

func TestCommandOutput(t *testing.T) {
	fakeSSH(t, `case "$*" in
*" -p 9 "*)
	echo hello
	echo oops >&2
	exit 0
	;;
esac
exit 0`)

	session, err := NewSessionBuilder().Connect("example.com")
	require.NoError(t, err)
	defer session.Close()

	output, err := session.Command("echo", "hello").Output()
	require.NoError(t, err)
	require.True(t, output.Success())
	require.Equal(t, "hello\n", string(output.Stdout))
	require.Equal(t, "oops\n", string(output.Stderr))
}

func TestCommandRemoteFailureStatus(t *testing.T) {
	fakeSSH(t, `case "$*" in *" -p 9 "*) exit 7 ;; esac
exit 0`)

	session, err := NewSessionBuilder().Connect("example.com")
	require.NoError(t, err)
	defer session.Close()

	// A failing remote command is not a transport error.
	output, err := session.Command("false").Output()
	require.NoError(t, err)
	require.False(t, output.Success())
	require.Equal(t, 7, output.ExitStatus)

	status, err := session.Command("false").Status()
	require.NoError(t, err)
	require.Equal(t, 7, status)
}

func TestCommandDisconnected(t *testing.T) {
	fakeSSH(t, `case "$*" in
*" -p 9 "*)
	echo "Control socket connect: No such file or directory" >&2
	exit 255
	;;
esac
exit 0`)

	session, err := NewSessionBuilder().Connect("example.com")
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Command("uptime").Output()
	var sshErr *Error
	require.ErrorAs(t, err, &sshErr)
	require.Equal(t, KindDisconnected, sshErr.Kind)
	require.Equal(t, "Control socket connect: No such file or directory", sshErr.Stderr)
}

func TestSpawnAndWait(t *testing.T) {
	fakeSSH(t, `case "$*" in *" -p 9 "*) exit 7 ;; esac
exit 0`)

	session, err := NewSessionBuilder().Connect("example.com")
	require.NoError(t, err)
	defer session.Close()

	child, err := session.Command("false").Spawn()
	require.NoError(t, err)
	require.Same(t, session, child.Session())

	status, err := child.Wait()
	require.NoError(t, err)
	require.Equal(t, 7, status)
}

func TestCommandStdinRedirect(t *testing.T) {
	fakeSSH(t, `case "$*" in *" -p 9 "*) cat; exit 0 ;; esac
exit 0`)

	session, err := NewSessionBuilder().Connect("example.com")
	require.NoError(t, err)
	defer session.Close()

	output, err := session.Command("cat").Stdin(strings.NewReader("ping\n")).Output()
	require.NoError(t, err)
	require.Equal(t, "ping\n", string(output.Stdout))
}
