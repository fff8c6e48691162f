package permission

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Bitflag is the dashboard's permission set. Each named permission owns one bit.
type Bitflag uint64

// Named dashboard permissions. New permissions are appended at the end so that
// existing bit positions never move.
const (
	ViewDashboard Bitflag = 1 << iota
	ViewTickets
	ManageTickets
	ViewTranscripts
	ManagePanels
	ManageForms
	ManageRoles
	ManageSettings
	ViewAnalytics
	ManageBlacklist
)

// None grants nothing.
const None Bitflag = 0

// All is every named permission.
const All = ViewDashboard | ViewTickets | ManageTickets | ViewTranscripts | ManagePanels |
	ManageForms | ManageRoles | ManageSettings | ViewAnalytics | ManageBlacklist

// Named lists every permission with its stable name.
var Named = []struct {
	Name string
	Flag Bitflag
}{
	{"view_dashboard", ViewDashboard},
	{"view_tickets", ViewTickets},
	{"manage_tickets", ManageTickets},
	{"view_transcripts", ViewTranscripts},
	{"manage_panels", ManagePanels},
	{"manage_forms", ManageForms},
	{"manage_roles", ManageRoles},
	{"manage_settings", ManageSettings},
	{"view_analytics", ViewAnalytics},
	{"manage_blacklist", ManageBlacklist},
}

// Grant returns existing with flag added.
func Grant(existing, flag Bitflag) Bitflag {
	return existing | flag
}

// Revoke returns existing with flag removed.
func Revoke(existing, flag Bitflag) Bitflag {
	return existing &^ flag
}

// Has reports whether every bit of required is present in b. A zero required
// set is never granted.
func Has(b, required Bitflag) bool {
	return required != 0 && b&required == required
}

// HasAny reports whether b shares at least one bit with candidates.
func HasAny(b, candidates Bitflag) bool {
	return b&candidates != 0
}

// Has is the method form of Has.
func (b Bitflag) Has(required Bitflag) bool {
	return Has(b, required)
}

// Names returns the names of the known permissions present in b, in bit order.
func (b Bitflag) Names() []string {
	names := make([]string, 0, bits.OnesCount64(uint64(b)))
	for _, p := range Named {
		if b&p.Flag != 0 {
			names = append(names, p.Name)
		}
	}
	return names
}

// FromNames composes a bitflag from permission names.
func FromNames(names ...string) (Bitflag, error) {
	var b Bitflag
	for _, name := range names {
		flag, ok := Lookup(name)
		if !ok {
			return None, fmt.Errorf("permission: unknown permission %q", name)
		}
		b = Grant(b, flag)
	}
	return b, nil
}

// Lookup resolves a permission name.
func Lookup(name string) (Bitflag, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range Named {
		if p.Name == name {
			return p.Flag, true
		}
	}
	return None, false
}

// String renders the bitflag as a decimal integer.
func (b Bitflag) String() string {
	return strconv.FormatUint(uint64(b), 10)
}

// MarshalText encodes the bitflag as a decimal string so JSON consumers with
// 53-bit numbers do not lose precision.
func (b Bitflag) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText accepts decimal or 0x-prefixed hex.
func (b *Bitflag) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Parse reads a decimal or 0x-prefixed hexadecimal bitflag.
func Parse(s string) (Bitflag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, nil
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return None, fmt.Errorf("permission: invalid bitflag %q: %w", s, err)
	}
	return Bitflag(v), nil
}
