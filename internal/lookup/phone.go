package lookup

import (
	"strings"

	"golang.org/x/text/width"
)

// PhoneOptions describes the local numbering plan.
type PhoneOptions struct {
	CountryCode string // e.g. "972"
	TrunkPrefix string // e.g. "0"
	SuffixLen   int    // digits kept in the suffix key
}

func (o PhoneOptions) withDefaults() PhoneOptions {
	if o.SuffixLen <= 0 {
		o.SuffixLen = 8
	}
	return o
}

// Phone is a normalized phone number.
type Phone struct {
	Raw    string `json:"raw"`
	Digits string `json:"digits"`
	// Core is the national significant number: no country code, no trunk prefix.
	Core string `json:"core"`
	// Variants are the spellings tried for exact matches, most specific first.
	Variants []string `json:"variants"`
	// Suffix is the last SuffixLen digits of Core, used for fuzzy matches.
	Suffix string `json:"suffix"`
}

// Normalize folds full-width digits, drops everything that is not a digit and
// derives the local variants and suffix key. Empty input yields a zero Phone.
func Normalize(raw string, opts PhoneOptions) Phone {
	opts = opts.withDefaults()
	p := Phone{Raw: raw, Digits: digitsOnly(width.Fold.String(raw))}
	if p.Digits == "" {
		return p
	}

	core := p.Digits
	if cc := opts.CountryCode; cc != "" && strings.HasPrefix(core, cc) && len(core)-len(cc) >= opts.SuffixLen {
		core = core[len(cc):]
	}
	if tp := opts.TrunkPrefix; tp != "" && strings.HasPrefix(core, tp) && len(core) > len(tp) {
		core = core[len(tp):]
	}
	p.Core = core

	candidates := []string{p.Digits, core}
	if opts.TrunkPrefix != "" {
		candidates = append(candidates, opts.TrunkPrefix+core)
	}
	if opts.CountryCode != "" {
		candidates = append(candidates, opts.CountryCode+core, "+"+opts.CountryCode+core)
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		p.Variants = append(p.Variants, c)
	}

	p.Suffix = core
	if len(core) > opts.SuffixLen {
		p.Suffix = core[len(core)-opts.SuffixLen:]
	}
	return p
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
