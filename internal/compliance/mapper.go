// Package compliance maps applied technical controls to the
// regulatory citations they evidence. The mapping is a static table;
// Map is a pure function over it.
package compliance

import (
	"sort"
	"time"
)

// Control names as emitted by the pipeline.
const (
	ControlInputSanitization  = "input_sanitization"
	ControlFirewall           = "firewall_llm"
	ControlRBACAdaptive       = "rbac_adaptive"
	ControlOutputSanitization = "output_sanitization"
)

// Evidence records which controls ran for a request and what standards
// they satisfy.
type Evidence struct {
	Timestamp        time.Time                      `json:"timestamp"`
	ControlsApplied  []string                       `json:"controls_applied"`
	Mapping          map[string]map[string][]string `json:"compliance_mapping"`
	StandardsCovered []string                       `json:"standards_covered"`
}

var controlMappings = map[string]map[string][]string{
	ControlInputSanitization: {
		"eu_ai_act": {"Article 9", "Article 10"},
		"owasp":     {"LLM01", "LLM02"},
		"iso":       {"ISO/IEC 27001:2022 A.9.4"},
		"enisa":     {"ENISA AI Security Guidelines"},
	},
	ControlFirewall: {
		"eu_ai_act": {"Article 15"},
		"owasp":     {"LLM03", "LLM04"},
		"iso":       {"ISO/IEC 27001:2022 A.12.6"},
		"enisa":     {"ENISA AI Security Guidelines"},
	},
	ControlRBACAdaptive: {
		"eu_ai_act": {"Article 9"},
		"owasp":     {"LLM05"},
		"iso":       {"ISO/IEC 27001:2022 A.9.2"},
		"enisa":     {"ENISA AI Security Guidelines"},
	},
	ControlOutputSanitization: {
		"eu_ai_act": {"Article 10"},
		"owasp":     {"LLM06"},
		"iso":       {"ISO/IEC 27001:2022 A.9.4"},
		"enisa":     {"ENISA AI Security Guidelines"},
	},
}

// Map builds the compliance evidence for the given applied controls.
// Unknown control names are carried in ControlsApplied but contribute
// no citations. Standards are sorted for stable output.
func Map(controlsApplied []string) Evidence {
	ev := Evidence{
		Timestamp:       time.Now().UTC(),
		ControlsApplied: controlsApplied,
		Mapping:         make(map[string]map[string][]string),
	}

	standards := make(map[string]struct{})
	for _, control := range controlsApplied {
		citations, ok := controlMappings[control]
		if !ok {
			continue
		}
		ev.Mapping[control] = citations
		for standard := range citations {
			standards[standard] = struct{}{}
		}
	}

	ev.StandardsCovered = make([]string, 0, len(standards))
	for s := range standards {
		ev.StandardsCovered = append(ev.StandardsCovered, s)
	}
	sort.Strings(ev.StandardsCovered)
	return ev
}
