package config

// KeywordsConfig overrides the fallback classifier keyword lists.
// Empty lists keep the built-in defaults.
type KeywordsConfig struct {
	Summary []string `hcl:"summary,optional"`
	Video   []string `hcl:"video,optional"`
	Gemini  []string `hcl:"gemini,optional"`
	Drawing []string `hcl:"drawing,optional"`
	Image   []string `hcl:"image,optional"`
}
