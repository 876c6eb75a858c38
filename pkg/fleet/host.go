package fleet

import (
	"github.com/sshmux/sshmux/pkg/rexec"
	"github.com/sshmux/sshmux/pkg/sshx"
)

// Host describes the configuration of a single remote host.
type Host struct {
	Name string       `yaml:"name"`
	SSH  rexec.Config `yaml:"ssh"`

	runner *rexec.Mux
}

// DisplayName returns the name the host is reported under, falling
// back to its address if no name is configured.
func (h *Host) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.SSH.Host
}

// Connect establishes the control channel to the host.
func (h *Host) Connect(options ...Option) error {
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return err
	}

	h.runner, err = rexec.NewMux(&h.SSH,
		rexec.WithLogger(opts.Logger),
		rexec.WithTimeout(opts.Timeout),
	)
	if err != nil {
		return err
	}

	return h.runner.Connect()
}

// Command prepares a command to run on the host through its control
// channel. It fails if the host is not connected.
func (h *Host) Command(name string, arg ...string) (*sshx.Command, error) {
	if h.runner == nil {
		return nil, &sshx.Error{Kind: sshx.KindDisconnected}
	}
	return h.runner.Command(name, arg...)
}

// Check probes the health of the host's control channel. It fails if
// the host is not connected.
func (h *Host) Check() error {
	if h.runner == nil || h.runner.Session() == nil {
		return &sshx.Error{Kind: sshx.KindDisconnected}
	}
	return h.runner.Session().Check()
}

// Disconnect closes the control channel to the host.
func (h *Host) Disconnect() error {
	if h.runner == nil {
		return nil
	}
	return h.runner.Disconnect()
}
