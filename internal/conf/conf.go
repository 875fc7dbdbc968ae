package conf

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

const (
	ProberIcmp = "icmp"
	ProberTcp  = "tcp"

	RestarterLink       = "link"
	RestarterNetworkctl = "networkctl"

	defaultProbeInterval    = 10 * time.Second
	defaultFailureThreshold = 3
	defaultRestartLimit     = 3
	defaultRestartDelay     = 30 * time.Second
	defaultProbeTimeout     = 3 * time.Second
)

var validate *validator.Validate = validator.New()

type Config struct {
	Interface string `validate:"required"`
	Target    string `validate:"omitempty,ip"`

	ProbeInterval    time.Duration `validate:"gte=0"`
	FailureThreshold int           `validate:"gte=1"`
	RestartLimit     int           `validate:"gte=0"`
	RestartDelay     time.Duration `validate:"gte=0"`

	Prober       string        `validate:"oneof=icmp tcp"`
	ProbeTimeout time.Duration `validate:"gt=0"`
	ProbePort    int           `validate:"gte=0,lte=65535"`

	Restarter string `validate:"oneof=link networkctl"`

	MetricsFile string `validate:"excluded_with=MetricsAddr,omitempty,filepath"`
	MetricsAddr string `validate:"excluded_with=MetricsFile,omitempty,hostname_port"`
}

// Default returns a config pre-populated with the defaults that flag
// parsing starts from.
func Default() *Config {
	return &Config{
		ProbeInterval:    defaultProbeInterval,
		FailureThreshold: defaultFailureThreshold,
		RestartLimit:     defaultRestartLimit,
		RestartDelay:     defaultRestartDelay,
		Prober:           ProberIcmp,
		ProbeTimeout:     defaultProbeTimeout,
		Restarter:        RestarterLink,
	}
}

// GatewayMode is active when no explicit target has been configured. The
// probe target is then the interface's default gateway, re-resolved every
// cycle.
func (c *Config) GatewayMode() bool {
	return c.Target == ""
}

func (c *Config) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		errs = multierr.Append(errs, err)
	}

	if c.Prober == ProberTcp && c.ProbePort == 0 {
		errs = multierr.Append(errs, errors.New("tcp prober requires a probe port"))
	}

	if c.Prober == ProberIcmp && c.ProbePort != 0 {
		errs = multierr.Append(errs, errors.New("probe port is only valid for the tcp prober"))
	}

	return errs
}
