// Package phone normalizes user-supplied phone numbers into WhatsApp
// user addresses.
package phone

import "strings"

// UserSuffix is the server part of a personal WhatsApp address.
const UserSuffix = "@s.whatsapp.net"

// Formatter turns free-form phone input into a canonical address.
type Formatter struct {
	// CountryCode replaces a leading national trunk "0".
	CountryCode string
}

// NewFormatter creates a formatter for the given country calling code.
func NewFormatter(countryCode string) Formatter {
	return Formatter{CountryCode: countryCode}
}

// Format returns the canonical address for raw. It never fails; input that
// cannot name a real account yields an address the engine will reject.
func (f Formatter) Format(raw string) string {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), UserSuffix)

	var b strings.Builder
	b.Grow(len(raw) + len(f.CountryCode) + len(UserSuffix))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, "0") {
		digits = f.CountryCode + digits[1:]
	}

	return digits + UserSuffix
}
