package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var errInvalidRole = errors.New("invalid role: must be tenant_admin or member")

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}

// Permissions is the module permission set of a membership: either every
// feature module, or an explicit subset. The zero value allows everything,
// matching the default for memberships created without a restriction.
type Permissions struct {
	all     bool
	modules map[string]bool
}

// AllModules returns a permission set covering every feature module.
func AllModules() Permissions {
	return Permissions{all: true}
}

// Subset returns a permission set restricted to the given modules.
func Subset(modules ...string) Permissions {
	m := make(map[string]bool, len(modules))
	for _, mod := range modules {
		m[mod] = true
	}
	return Permissions{modules: m}
}

// IsAll reports whether the set covers every module.
func (p Permissions) IsAll() bool {
	return p.all || p.modules == nil
}

// Allows reports whether the set covers the named module.
func (p Permissions) Allows(module string) bool {
	if p.IsAll() {
		return true
	}
	return p.modules[module]
}

// Modules returns the explicit module list in sorted order, or nil when the
// set covers everything.
func (p Permissions) Modules() []string {
	if p.IsAll() {
		return nil
	}
	out := make([]string, 0, len(p.modules))
	for m := range p.modules {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Describe renders the set for denial payloads and logs: the string "all",
// or the sorted module list.
func (p Permissions) Describe() []string {
	if p.IsAll() {
		return []string{"all"}
	}
	return p.Modules()
}

// permissionsJSON is the wire shape of a permission set.
type permissionsJSON struct {
	All     bool     `json:"all,omitempty"`
	Modules []string `json:"modules,omitempty"`
}

// MarshalJSON encodes the set as {"all":true} or {"modules":[...]}.
func (p Permissions) MarshalJSON() ([]byte, error) {
	if p.IsAll() {
		return json.Marshal(permissionsJSON{All: true})
	}
	return json.Marshal(permissionsJSON{Modules: p.Modules()})
}

// UnmarshalJSON decodes both wire shapes.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var raw permissionsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.All {
		*p = AllModules()
		return nil
	}
	*p = Subset(raw.Modules...)
	return nil
}
