package sshx

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestKeyFingerprint(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	fingerprint, err := KeyFingerprint(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(fingerprint, "SHA256:"))

	// The fingerprint belongs to the matching public key.
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	require.Equal(t, ssh.FingerprintSHA256(sshPub), fingerprint)
}

func TestKeyFingerprintMissingFile(t *testing.T) {
	_, err := KeyFingerprint(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestKeyFingerprintInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := KeyFingerprint(path)
	require.Error(t, err)
}
