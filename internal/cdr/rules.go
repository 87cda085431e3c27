package cdr

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"crm-telephony/internal/calls"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// StatusRule classifies a lower-cased disposition. A rule matches when every
// AllOf keyword is present, or when any AnyOf keyword is present.
type StatusRule struct {
	Status calls.Status `yaml:"status"`
	AllOf  []string     `yaml:"all_of"`
	AnyOf  []string     `yaml:"any_of"`
}

func (r StatusRule) matches(disposition string) bool {
	if len(r.AllOf) > 0 {
		all := true
		for _, k := range r.AllOf {
			if !strings.Contains(disposition, k) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	for _, k := range r.AnyOf {
		if strings.Contains(disposition, k) {
			return true
		}
	}
	return false
}

// Rules holds the heuristics the mapper applies to vendor codes.
// StatusRules are evaluated in order and the first match wins, so no-answer
// must come before answered.
type Rules struct {
	StripSuffixes     []string                   `yaml:"strip_suffixes"`
	ContextDirections map[string]calls.Direction `yaml:"context_directions"`
	StatusRules       []StatusRule               `yaml:"status_rules"`
	ExtensionPattern  string                     `yaml:"extension_pattern"`

	extension *regexp.Regexp
}

const defaultExtensionPattern = `^\d{3,4}$`

var defaultExtension = regexp.MustCompile(defaultExtensionPattern)

// DefaultRules returns the built-in rule tables.
func DefaultRules() Rules {
	r := Rules{
		StripSuffixes: []string{"@pbx", "-pbx", "@sip", "@trunk"},
		ContextDirections: map[string]calls.Direction{
			"from-pstn":           calls.DirectionInbound,
			"from-trunk":          calls.DirectionInbound,
			"from-did-direct":     calls.DirectionInbound,
			"ext-did":             calls.DirectionInbound,
			"from-internal":       calls.DirectionOutbound,
			"outbound-allroutes":  calls.DirectionOutbound,
			"from-internal-xfer":  calls.DirectionOutbound,
			"macro-dialout-trunk": calls.DirectionOutbound,
			"ext-queues":          calls.DirectionQueue,
			"from-queue":          calls.DirectionQueue,
			"ext-meetme":          calls.DirectionConference,
			"conferences":         calls.DirectionConference,
			"ext-vm":              calls.DirectionVoicemail,
			"voicemail":           calls.DirectionVoicemail,
		},
		StatusRules: []StatusRule{
			{Status: calls.StatusNoAnswer, AllOf: []string{"no", "answer"}, AnyOf: []string{"no answer", "noanswer", "no_answer"}},
			{Status: calls.StatusAnswered, AnyOf: []string{"answer"}},
			{Status: calls.StatusBusy, AnyOf: []string{"busy"}},
			{Status: calls.StatusFailed, AnyOf: []string{"fail", "congestion"}},
			{Status: calls.StatusCancelled, AnyOf: []string{"cancel"}},
			{Status: calls.StatusRedirected, AnyOf: []string{"redirect"}},
		},
		ExtensionPattern: defaultExtensionPattern,
		extension:        defaultExtension,
	}
	return r
}

// LoadRules reads a YAML override on top of DefaultRules. Lists in the file
// replace the defaults; context_directions entries are merged into the table.
func LoadRules(path string) (Rules, error) {
	r := DefaultRules()
	if path == "" {
		return r, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "cdr: read rules %s", path)
	}
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, eris.Wrapf(err, "cdr: parse rules %s", path)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate checks enum values and compiles the extension pattern.
func (r *Rules) Validate() error {
	for code, d := range r.ContextDirections {
		if !d.Valid() {
			return fmt.Errorf("cdr: context %q maps to unknown direction %q", code, d)
		}
	}
	for i, sr := range r.StatusRules {
		if !sr.Status.Valid() {
			return fmt.Errorf("cdr: status rule %d has unknown status %q", i, sr.Status)
		}
		if len(sr.AllOf) == 0 && len(sr.AnyOf) == 0 {
			return fmt.Errorf("cdr: status rule %d has no keywords", i)
		}
	}
	return r.compile()
}

func (r *Rules) compile() error {
	if r.ExtensionPattern == "" {
		r.ExtensionPattern = defaultExtensionPattern
	}
	re, err := regexp.Compile(r.ExtensionPattern)
	if err != nil {
		return eris.Wrapf(err, "cdr: extension pattern %q", r.ExtensionPattern)
	}
	r.extension = re
	return nil
}

// Clean strips known vendor suffixes (and the tenant markers) from a raw
// source or destination, repeatedly, until none apply.
func (r Rules) Clean(raw, tenant string) string {
	s := strings.TrimSpace(raw)
	suffixes := r.StripSuffixes
	if tenant != "" {
		suffixes = append(append([]string(nil), suffixes...), "-"+tenant, "@"+tenant)
	}
	for changed := true; changed; {
		changed = false
		for _, suf := range suffixes {
			if suf == "" || len(s) < len(suf) {
				continue
			}
			if strings.EqualFold(s[len(s)-len(suf):], suf) {
				s = strings.TrimSpace(s[:len(s)-len(suf)])
				changed = true
			}
		}
	}
	return s
}

// Direction infers call direction from the context code, falling back to the
// extension pattern on the cleaned source, then the cleaned destination.
func (r Rules) Direction(context, src, dst string) calls.Direction {
	if d, ok := r.ContextDirections[strings.ToLower(strings.TrimSpace(context))]; ok {
		return d
	}
	re := r.extension
	if re == nil {
		re = defaultExtension
	}
	switch {
	case re.MatchString(src):
		return calls.DirectionOutbound
	case re.MatchString(dst):
		return calls.DirectionInbound
	default:
		return calls.DirectionUnknown
	}
}

// Status normalizes a disposition through StatusRules.
func (r Rules) Status(disposition string) calls.Status {
	d := strings.ToLower(strings.TrimSpace(disposition))
	if d == "" {
		return calls.StatusUnknown
	}
	for _, sr := range r.StatusRules {
		if sr.matches(d) {
			return sr.Status
		}
	}
	return calls.StatusUnknown
}
