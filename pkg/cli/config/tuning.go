package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/aletheia-lab/mnemosyne/pkg/service/gateway"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
)

// Tuning holds the optional TOML tuning file flag. The file adjusts
// retrieval behavior and the guard in front of the LLM provider; every
// field is optional and omitted fields keep the package defaults.
type Tuning struct {
	path string
}

// Flags returns CLI flags for the tuning file
func (t *Tuning) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a TOML tuning file",
			Sources:     cli.EnvVars("MNEMOSYNE_CONFIG"),
			Destination: &t.path,
		},
	}
}

// tuningFile is the TOML shape of the tuning file
type tuningFile struct {
	Retrieval struct {
		MaxHops         int     `toml:"max_hops"`
		DistanceCeiling float64 `toml:"distance_ceiling"`
	} `toml:"retrieval"`
	Gateway struct {
		RequestsPerSecond float64 `toml:"requests_per_second"`
		Burst             int     `toml:"burst"`
		MaxFailures       int     `toml:"max_failures"`
		CoolDown          string  `toml:"cool_down"`
		HalfOpenProbes    int     `toml:"half_open_probes"`
	} `toml:"gateway"`
}

// Validate checks the value ranges of the tuning file
func (f *tuningFile) Validate() error {
	if f.Retrieval.MaxHops < 0 {
		return goerr.Wrap(ErrInvalidConfig, "retrieval.max_hops must not be negative",
			goerr.V("max_hops", f.Retrieval.MaxHops))
	}
	if f.Retrieval.DistanceCeiling < 0 || f.Retrieval.DistanceCeiling > 2 {
		return goerr.Wrap(ErrInvalidConfig, "retrieval.distance_ceiling must be within [0, 2]",
			goerr.V("distance_ceiling", f.Retrieval.DistanceCeiling))
	}
	if f.Gateway.RequestsPerSecond < 0 {
		return goerr.Wrap(ErrInvalidConfig, "gateway.requests_per_second must not be negative",
			goerr.V("requests_per_second", f.Gateway.RequestsPerSecond))
	}
	if f.Gateway.Burst < 0 {
		return goerr.Wrap(ErrInvalidConfig, "gateway.burst must not be negative",
			goerr.V("burst", f.Gateway.Burst))
	}
	if f.Gateway.MaxFailures < 0 {
		return goerr.Wrap(ErrInvalidConfig, "gateway.max_failures must not be negative",
			goerr.V("max_failures", f.Gateway.MaxFailures))
	}
	if f.Gateway.HalfOpenProbes < 0 {
		return goerr.Wrap(ErrInvalidConfig, "gateway.half_open_probes must not be negative",
			goerr.V("half_open_probes", f.Gateway.HalfOpenProbes))
	}
	return nil
}

// Configure loads the tuning file when one is given. Both results start
// from the package defaults; file values override them field by field.
func (t *Tuning) Configure() (usecase.Config, gateway.GuardConfig, error) {
	retrieval := usecase.DefaultConfig()
	guard := gateway.DefaultGuardConfig()

	if t.path == "" {
		return retrieval, guard, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return retrieval, guard, goerr.Wrap(ErrConfigNotFound, "no tuning file at path",
				goerr.V(ConfigPathKey, t.path))
		}
		return retrieval, guard, goerr.Wrap(err, "failed to read tuning file",
			goerr.V(ConfigPathKey, t.path))
	}

	var f tuningFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return retrieval, guard, goerr.Wrap(err, "failed to parse TOML tuning file",
			goerr.V(ConfigPathKey, t.path))
	}
	if err := f.Validate(); err != nil {
		return retrieval, guard, goerr.Wrap(err, "tuning validation failed",
			goerr.V(ConfigPathKey, t.path))
	}

	if f.Retrieval.MaxHops > 0 {
		retrieval.MaxHops = f.Retrieval.MaxHops
	}
	if f.Retrieval.DistanceCeiling > 0 {
		retrieval.DistanceCeiling = f.Retrieval.DistanceCeiling
	}
	if f.Gateway.RequestsPerSecond > 0 {
		guard.RequestsPerSecond = f.Gateway.RequestsPerSecond
	}
	if f.Gateway.Burst > 0 {
		guard.Burst = f.Gateway.Burst
	}
	if f.Gateway.MaxFailures > 0 {
		guard.MaxFailures = uint32(f.Gateway.MaxFailures)
	}
	if f.Gateway.CoolDown != "" {
		d, err := time.ParseDuration(f.Gateway.CoolDown)
		if err != nil {
			return retrieval, guard, goerr.Wrap(err, "invalid gateway.cool_down",
				goerr.V("cool_down", f.Gateway.CoolDown), goerr.V(ConfigPathKey, t.path))
		}
		if d <= 0 {
			return retrieval, guard, goerr.Wrap(ErrInvalidConfig, "gateway.cool_down must be positive",
				goerr.V("cool_down", f.Gateway.CoolDown))
		}
		guard.CoolDown = d
	}
	if f.Gateway.HalfOpenProbes > 0 {
		guard.HalfOpenProbes = uint32(f.Gateway.HalfOpenProbes)
	}

	return retrieval, guard, nil
}
