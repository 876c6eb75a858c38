// Package fleet executes commands across a set of remote hosts, each
// reached through its own multiplexed SSH session.
package fleet

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/sshmux/sshmux/pkg/sshx"
)

// Fleet is a type that encapsulates the execution of commands across
// all configured hosts.
type Fleet struct {
	Logger *zerolog.Logger

	sync.Mutex
	connected bool

	Spec *Config
}

// New creates a new Fleet.
func New(options ...Option) (*Fleet, error) {
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return nil, err
	}

	return &Fleet{
		Logger: opts.Logger,
	}, nil
}

// SetSpec configures the hosts of the fleet. Note that the config will
// only be applied if the verification succeeds.
func (f *Fleet) SetSpec(config *Config) error {
	if err := config.Verify(); err != nil {
		return err
	}

	f.Spec = config
	return nil
}

// Connect establishes a control channel to every host. Each host
// authenticates exactly once, every command afterwards attaches to the
// existing channel.
func (f *Fleet) Connect(options ...Option) error {
	f.Lock()
	defer f.Unlock()

	if f.connected {
		return nil
	}

	hostOptions := append([]Option{WithLogger(f.Logger)}, options...)
	for i := range f.Spec.Hosts {
		host := &f.Spec.Hosts[i]

		f.Logger.Info().Str("host", host.DisplayName()).Msg("Connecting")
		if err := host.Connect(hostOptions...); err != nil {
			return err
		}
	}

	f.connected = true
	return nil
}

// Result describes the outcome of one command on one host.
type Result struct {
	Host   string
	Output *sshx.Output
	Err    error
}

// Run executes the command on all hosts concurrently. The sessions
// multiplex the invocations over their established channels, so no
// host re-authenticates.
func (f *Fleet) Run(program string, args ...string) []Result {
	results := make([]Result, len(f.Spec.Hosts))

	var wg sync.WaitGroup
	for i := range f.Spec.Hosts {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			host := &f.Spec.Hosts[i]

			cmd, err := host.Command(program, args...)
			if err != nil {
				results[i] = Result{Host: host.DisplayName(), Err: err}
				return
			}

			output, err := cmd.Output()
			results[i] = Result{
				Host:   host.DisplayName(),
				Output: output,
				Err:    err,
			}
		}(i)
	}
	wg.Wait()

	return results
}

// Check probes the control channel of every host.
func (f *Fleet) Check() []Result {
	results := make([]Result, len(f.Spec.Hosts))

	for i := range f.Spec.Hosts {
		host := &f.Spec.Hosts[i]
		results[i] = Result{
			Host: host.DisplayName(),
			Err:  host.Check(),
		}
	}

	return results
}

// Disconnect closes the control channels in reverse order to how they
// were opened. The first teardown error is reported, later hosts are
// still disconnected.
func (f *Fleet) Disconnect() error {
	f.Lock()
	defer f.Unlock()

	var firstErr error
	for i := len(f.Spec.Hosts) - 1; i >= 0; i-- {
		if err := f.Spec.Hosts[i].Disconnect(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	f.connected = false
	return firstErr
}
