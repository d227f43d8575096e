package agent

import loomerrors "github.com/adalundhe/loom/core/errors"

// Preset kinds. These drive a lookup table of fixed signal/noise ratios and
// competence descriptions, not subtypes.
const (
	KindResearch = "research"
	KindCode     = "code"
	KindCreative = "creative"
	KindAnalysis = "analysis"
	KindGeneral  = "general"
)

var presets = map[string]Spec{
	KindResearch: {
		Kind:         KindResearch,
		Competence:   "information retrieval, literature research, and summarization",
		SignalWeight: 0.9,
		NoiseWeight:  0.1,
	},
	KindCode: {
		Kind:         KindCode,
		Competence:   "debugging and implementation of software",
		SignalWeight: 0.95,
		NoiseWeight:  0.05,
	},
	KindCreative: {
		Kind:         KindCreative,
		Competence:   "creative writing, brainstorming, and idea generation",
		SignalWeight: 0.7,
		NoiseWeight:  0.3,
	},
	KindAnalysis: {
		Kind:         KindAnalysis,
		Competence:   "data analysis, evaluation, and structured reasoning",
		SignalWeight: 0.85,
		NoiseWeight:  0.15,
	},
	KindGeneral: {
		Kind:         KindGeneral,
		Competence:   "general purpose task handling",
		SignalWeight: 0.8,
		NoiseWeight:  0.2,
	},
}

// PresetKinds lists the known preset kinds.
func PresetKinds() []string {
	return []string{KindResearch, KindCode, KindCreative, KindAnalysis, KindGeneral}
}

// PresetSpec returns the spec template for a preset kind.
func PresetSpec(kind string) (Spec, error) {
	spec, ok := presets[kind]
	if !ok {
		return Spec{}, loomerrors.NewConfigError("kind", kind, "unknown preset")
	}
	return spec, nil
}
