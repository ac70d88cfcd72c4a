package strategy

import (
	"errors"
	"fmt"

	"nnfx-go/internal/registry"
	"nnfx-go/internal/signal"
)

// Params selects one indicator per role plus the ATR and risk settings shared by every
// instrument.
type Params struct {
	Baseline      registry.Spec `yaml:"baseline"`
	Confirmation1 registry.Spec `yaml:"confirmation1"`
	Confirmation2 registry.Spec `yaml:"confirmation2"`
	Volume        registry.Spec `yaml:"volume"`
	Exit          registry.Spec `yaml:"exit"`
	ATRPeriod     int           `yaml:"atr_period"`
	SLMultiple    float64       `yaml:"sl_multiple"`
	TPMultiple    float64       `yaml:"tp_multiple"`
	RiskPercent   float64       `yaml:"risk_percent"`
}

// WithDefaults fills unset numeric knobs: ATR 14, stop 1.5 ATR, target 1 ATR, 2% risk.
func (p Params) WithDefaults() Params {
	if p.ATRPeriod <= 0 {
		p.ATRPeriod = 14
	}
	if p.SLMultiple <= 0 {
		p.SLMultiple = 1.5
	}
	if p.TPMultiple <= 0 {
		p.TPMultiple = 1.0
	}
	if p.RiskPercent <= 0 {
		p.RiskPercent = 2.0
	}
	return p
}

// Validate checks every role selection against the registry.
func (p Params) Validate() error {
	var errs []error
	for _, rs := range p.roles() {
		if err := registry.Validate(rs.role, rs.spec); err != nil {
			errs = append(errs, err)
		}
	}
	if p.RiskPercent > 100 {
		errs = append(errs, fmt.Errorf("risk_percent %v exceeds 100", p.RiskPercent))
	}
	return errors.Join(errs...)
}

type roleSpec struct {
	role signal.Role
	spec registry.Spec
}

func (p Params) roles() []roleSpec {
	return []roleSpec{
		{signal.RoleBaseline, p.Baseline},
		{signal.RoleConfirmation, p.Confirmation1},
		{signal.RoleConfirmation, p.Confirmation2},
		{signal.RoleVolume, p.Volume},
		{signal.RoleExit, p.Exit},
	}
}
