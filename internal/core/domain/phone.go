package domain

import "strings"

// NormalizeNumber strips every non-digit character from a phone number.
func NormalizeNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeNumberMpesa returns the 258-prefixed international form the
// M-Pesa API expects. A 9-digit local number starting with a Mozambican
// mobile prefix gets the country code prepended; anything else is
// passed through digits-only.
func NormalizeNumberMpesa(number string) string {
	n := NormalizeNumber(number)
	if strings.HasPrefix(n, "258") && len(n) == 12 {
		return n
	}
	if len(n) == 9 {
		switch n[:2] {
		case "84", "85", "86", "87":
			return "258" + n
		}
	}
	return n
}

// NormalizeNumberEmola returns the 9-digit local form the e-Mola API
// expects, dropping any country code.
func NormalizeNumberEmola(number string) string {
	n := NormalizeNumber(number)
	if len(n) > 9 {
		return n[len(n)-9:]
	}
	return n
}

// PrefixRouter maps local phone-number prefixes to provider codes.
// The table is policy data loaded from configuration, not logic.
type PrefixRouter struct {
	routes map[string]string
}

func NewPrefixRouter(routes map[string]string) *PrefixRouter {
	r := &PrefixRouter{routes: make(map[string]string, len(routes))}
	for prefix, provider := range routes {
		r.routes[prefix] = provider
	}
	return r
}

// Route infers the provider for a payer phone number from its local
// 2-digit prefix. Returns ErrUnsupportedProvider when no route matches.
func (r *PrefixRouter) Route(number string) (string, error) {
	n := NormalizeNumberEmola(number)
	if len(n) < 2 {
		return "", ErrUnsupportedProvider
	}
	if provider, ok := r.routes[n[:2]]; ok {
		return provider, nil
	}
	return "", ErrUnsupportedProvider
}
