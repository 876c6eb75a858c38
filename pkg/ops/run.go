package ops

import (
	"github.com/sshmux/sshmux/pkg/fleet"
)

// Run executes a command on every host of the fleet configuration. All
// hosts are connected first so that a handshake failure aborts the
// operation before any command runs.
func Run(program string, args []string, options ...Option) ([]fleet.Result, error) {
	// Fetch the options for this operation.
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return nil, err
	}

	// Load the configuration file.
	config, err := fleet.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	config, err = config.SelectHosts(opts.Hosts...)
	if err != nil {
		return nil, err
	}

	var fltOptions []fleet.Option
	if opts.Logger != nil {
		fltOptions = append(fltOptions, fleet.WithLogger(opts.Logger))
	}

	flt, err := fleet.New(fltOptions...)
	if err != nil {
		return nil, err
	}

	if err := flt.SetSpec(config); err != nil {
		return nil, err
	}

	if err := flt.Connect(); err != nil {
		return nil, err
	}
	defer flt.Disconnect()

	return flt.Run(program, args...), nil
}
