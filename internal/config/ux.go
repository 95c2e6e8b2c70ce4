package config

// GuidanceLevel controls how much help/guidance is shown.
type GuidanceLevel string

const (
	GuidanceVerbose GuidanceLevel = "verbose" // Maximum guidance
	GuidanceNormal  GuidanceLevel = "normal"  // Follow the maturity table
	GuidanceMinimal GuidanceLevel = "minimal" // Cap intensity at low
	GuidanceNone    GuidanceLevel = "none"    // No guidance messages
)

// Valid reports whether g is a known guidance level. Empty means normal.
func (g GuidanceLevel) Valid() bool {
	switch g {
	case "", GuidanceVerbose, GuidanceNormal, GuidanceMinimal, GuidanceNone:
		return true
	}
	return false
}

// GuidanceConfig controls contextual help and tips.
type GuidanceConfig struct {
	// Level overrides the maturity-derived guidance intensity
	Level GuidanceLevel `yaml:"level,omitempty" json:"level,omitempty"`

	// ShowInsights includes pattern insights alongside guidance
	ShowInsights bool `yaml:"show_insights" json:"show_insights"`

	// SuggestObservations prompts for missing observation categories
	SuggestObservations bool `yaml:"suggest_observations" json:"suggest_observations"`
}

// UXConfig holds persona and guidance preferences.
type UXConfig struct {
	// Persona selects the style table used by the composer
	Persona string `yaml:"persona" json:"persona,omitempty"`

	Guidance GuidanceConfig `yaml:"guidance" json:"guidance"`
}

// DefaultUXConfig returns sensible defaults.
func DefaultUXConfig() *UXConfig {
	return &UXConfig{
		Persona: "balanced",
		Guidance: GuidanceConfig{
			Level:               GuidanceNormal,
			ShowInsights:        true,
			SuggestObservations: true,
		},
	}
}
