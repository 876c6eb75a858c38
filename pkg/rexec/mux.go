package rexec

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sshmux/sshmux/pkg/sshx"
)

// Config describes the connection configuration of a remote host.
type Config struct {
	Host           string `yaml:"host"`
	Port           uint16 `yaml:"port"`
	User           string `yaml:"user"`
	KeyFile        string `yaml:"key-file"`
	KnownHosts     string `yaml:"known-hosts"`
	ConnectTimeout int    `yaml:"connect-timeout"`
}

// Mux is a Runner that executes commands on a remote host through a
// shared, multiplexed SSH connection. Authentication happens once
// during Connect, subsequent commands attach to the existing channel.
type Mux struct {
	Logger  *zerolog.Logger
	Target  *Config
	Timeout time.Duration

	session *sshx.Session
}

// NewMux returns a new Runner backed by an SSH control channel.
func NewMux(target *Config, options ...Option) (*Mux, error) {
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return nil, err
	}

	if target == nil || target.Host == "" {
		return nil, errors.New("no target host specified")
	}

	return &Mux{
		Logger:  opts.Logger,
		Target:  target,
		Timeout: opts.Timeout,
	}, nil
}

// Connect establishes the control channel to the remote host.
func (r *Mux) Connect() error {
	if r.session != nil {
		return nil
	}

	policy, err := sshx.ParseKnownHosts(r.Target.KnownHosts)
	if err != nil {
		return err
	}

	builder := sshx.NewSessionBuilder().
		KnownHostsCheck(policy).
		Logger(r.Logger)

	if r.Target.User != "" {
		builder.User(r.Target.User)
	}
	if r.Target.Port != 0 {
		builder.Port(r.Target.Port)
	}
	if r.Target.KeyFile != "" {
		builder.Keyfile(r.Target.KeyFile)

		if fingerprint, err := sshx.KeyFingerprint(r.Target.KeyFile); err == nil {
			r.Logger.Debug().Str("fingerprint", fingerprint).Msg("Using public key authentication")
		}
	}

	timeout := r.Timeout
	if r.Target.ConnectTimeout > 0 {
		timeout = time.Duration(r.Target.ConnectTimeout) * time.Second
	}
	if timeout > 0 {
		builder.ConnectTimeout(timeout)
	}

	r.session, err = builder.Connect(r.Target.Host)
	if err != nil {
		return err
	}

	return nil
}

// Command prepares a command to be run through the control channel.
// It fails if no channel is established.
func (r *Mux) Command(name string, arg ...string) (*sshx.Command, error) {
	if r.session == nil {
		return nil, &sshx.Error{Kind: sshx.KindDisconnected}
	}
	return r.session.Command(name, arg...), nil
}

// Session exposes the underlying session, e.g. for health checks.
func (r *Mux) Session() *sshx.Session {
	return r.session
}

// Disconnect tears the control channel down.
func (r *Mux) Disconnect() error {
	if r.session == nil {
		return nil
	}

	err := r.session.Close()
	r.session = nil
	return err
}
