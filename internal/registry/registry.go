// Package registry validates indicator selections and turns filter outputs into tri-state
// trade signals, one constructor per (role, indicator name).
package registry

import (
	"fmt"
	"sort"
	"strings"

	"nnfx-go/internal/signal"
)

// ConfigError reports an indicator selection that cannot be built.
type ConfigError struct {
	Role   signal.Role
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("indicator %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("%s indicator %q: %s", e.Role, e.Name, e.Reason)
}

// Spec selects one indicator and its positional parameters.
type Spec struct {
	Name   string         `yaml:"name"`
	Params []signal.Param `yaml:"params"`
}

func (s Spec) key() string { return strings.ToLower(strings.TrimSpace(s.Name)) }

// arity is the number of parameters each indicator takes.
var arity = map[string]int{
	"itrend":             1,
	"cybercycle":         1,
	"adaptivecybercycle": 2,
	"heikenashi":         1,
	"cvi":                2,
	"cmf":                1,
	"ssl":                1,
	"aroon":              1,
	"ttf":                1,
	"tdfi":               2,
	"kijun":              1,
	"ma":                 2,
	"wae":                6,
	"ash":                7,
	"roof":               3,
	"mama":               2,
	"fama":               2,
	"dosc":               1,
	"idosc":              2,
	"laguerre":           1,
	"alaguerre":          1,
	"butter":             2,
	"squeeze":            5,
	"schaff":             4,
	"kvo":                3,
	"damiani":            6,
	"nvol":               1,
	"supersmoother":      1,
}

// gates are volume indicators that only say whether volume is present, not its direction.
var gates = map[string]bool{"cvi": true, "damiani": true, "nvol": true}

func offered(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

var roles = map[signal.Role]map[string]bool{
	signal.RoleBaseline: offered("kijun", "ma", "itrend", "mama", "fama", "laguerre", "alaguerre", "butter", "supersmoother"),
	signal.RoleConfirmation: offered("itrend", "cybercycle", "adaptivecybercycle", "ssl", "aroon", "ttf", "tdfi",
		"cmf", "ash", "roof", "mama", "dosc", "idosc", "schaff", "kvo"),
	signal.RoleVolume: offered("cvi", "tdfi", "wae", "squeeze", "damiani", "nvol"),
	signal.RoleExit:   offered("heikenashi", "ssl", "itrend", "mama", "dosc"),
}

// Arity returns the declared parameter count of name.
func Arity(name string) (int, bool) {
	n, ok := arity[strings.ToLower(name)]
	return n, ok
}

// IsGate reports whether a volume indicator is non-directional.
func IsGate(name string) bool { return gates[strings.ToLower(name)] }

// Available lists the indicators offered for role, sorted.
func Available(role signal.Role) []string {
	out := make([]string, 0, len(roles[role]))
	for name := range roles[role] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks spec against the table for role without building anything.
func Validate(role signal.Role, spec Spec) error {
	name := spec.key()
	want, ok := arity[name]
	if !ok {
		return &ConfigError{Role: role, Name: spec.Name, Reason: "unknown indicator"}
	}
	if len(spec.Params) != want {
		return &ConfigError{Role: role, Name: spec.Name,
			Reason: fmt.Sprintf("expected %d params, got %d", want, len(spec.Params))}
	}
	if role != "" && !roles[role][name] {
		return &ConfigError{Role: role, Name: spec.Name, Reason: "not available for this role"}
	}
	return nil
}

// params reads positional parameters, remembering the first type mismatch.
type params struct {
	role signal.Role
	spec Spec
	err  error
}

func (p *params) fail(i int, want string) {
	if p.err == nil {
		p.err = &ConfigError{Role: p.role, Name: p.spec.Name,
			Reason: fmt.Sprintf("param %d (%s) must be %s", i, p.spec.Params[i], want)}
	}
}

func (p *params) num(i int) float64 {
	if p.spec.Params[i].IsName() {
		p.fail(i, "numeric")
		return 0
	}
	return p.spec.Params[i].Num
}

func (p *params) int(i int) int { return int(p.num(i)) }

func (p *params) name(i int) string {
	if !p.spec.Params[i].IsName() {
		p.fail(i, "a name")
		return ""
	}
	return p.spec.Params[i].Name
}

// wrap turns a constructor error into a ConfigError.
func (p *params) wrap(err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Role: p.role, Name: p.spec.Name, Reason: err.Error()}
}
