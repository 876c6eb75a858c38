package ops

import (
	"github.com/sshmux/sshmux/pkg/fleet"
)

// Check connects to every host of the fleet configuration and probes
// the health of each control channel.
func Check(options ...Option) ([]fleet.Result, error) {
	// Fetch the options for this operation.
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return nil, err
	}

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

	return flt.Check(), nil
}
