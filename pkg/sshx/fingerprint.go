package sshx

import (
	"os"
	"os/user"

	"golang.org/x/crypto/ssh"
)

// KeyFingerprint returns the SHA256 fingerprint of the public key that
// belongs to the private key stored at path. A leading "~" in the path
// is resolved to the home directory of the current user. This is a
// convenience for logging which identity a session authenticates with;
// the key itself is handed to the ssh client unparsed.
func KeyFingerprint(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		userInfo, err := user.Current()
		if err != nil {
			return "", err
		}
		path = userInfo.HomeDir + path[1:]
	}

	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return "", err
	}

	return ssh.FingerprintSHA256(signer.PublicKey()), nil
}
