package fleet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sshmux/sshmux/pkg/rexec"
	"github.com/sshmux/sshmux/pkg/sshx"
)

// fakeSSH places a fake ssh executable at the front of the PATH.
func fakeSSH(t *testing.T, script string) {
	t.Helper()

	dir := t.TempDir()
	body := "#!/bin/sh\n" + script
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ssh"), []byte(body), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func testConfig() *Config {
	return &Config{Hosts: []Host{
		{Name: "web", SSH: rexec.Config{Host: "web.example.com"}},
		{Name: "db", SSH: rexec.Config{Host: "db.example.com"}},
	}}
}

func TestSetSpecRejectsInvalidConfig(t *testing.T) {
	fleet, err := New()
	require.NoError(t, err)

	require.Error(t, fleet.SetSpec(&Config{}))
	require.Nil(t, fleet.Spec)

	require.NoError(t, fleet.SetSpec(testConfig()))
	require.NotNil(t, fleet.Spec)
}

func TestRunAcrossHosts(t *testing.T) {
	fakeSSH(t, `case "$*" in *" -p 9 "*) echo ok; exit 0 ;; esac
exit 0`)

	fleet, err := New()
	require.NoError(t, err)
	require.NoError(t, fleet.SetSpec(testConfig()))

	require.NoError(t, fleet.Connect())
	defer fleet.Disconnect()

	results := fleet.Run("true")
	require.Len(t, results, 2)

	require.Equal(t, "web", results[0].Host)
	require.Equal(t, "db", results[1].Host)
	for _, result := range results {
		require.NoError(t, result.Err)
		require.True(t, result.Output.Success())
		require.Equal(t, "ok\n", string(result.Output.Stdout))
	}
}

func TestCheckAcrossHosts(t *testing.T) {
	fakeSSH(t, `exit 0`)

	fleet, err := New()
	require.NoError(t, err)
	require.NoError(t, fleet.SetSpec(testConfig()))

	require.NoError(t, fleet.Connect())
	defer fleet.Disconnect()

	for _, result := range fleet.Check() {
		require.NoError(t, result.Err)
	}
}

func TestHostBeforeConnect(t *testing.T) {
	host := &Host{Name: "web", SSH: rexec.Config{Host: "web.example.com"}}

	_, err := host.Command("uptime")
	var cmdErr *sshx.Error
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, sshx.KindDisconnected, cmdErr.Kind)

	var checkErr *sshx.Error
	require.ErrorAs(t, host.Check(), &checkErr)
	require.Equal(t, sshx.KindDisconnected, checkErr.Kind)
}

func TestConnectFailureAborts(t *testing.T) {
	fakeSSH(t, `echo "ssh: connect to host web.example.com port 22: Connection refused" >&2
exit 255`)

	fleet, err := New()
	require.NoError(t, err)
	require.NoError(t, fleet.SetSpec(testConfig()))

	require.Error(t, fleet.Connect())
}
