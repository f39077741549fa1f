// Package settings defines the optimization settings object shared between
// the planner, the reviewer and the optimizer, together with the override
// merge and failure-softening transforms the agent applies between
// iterations.
package settings

// Settings is the complete set of knobs handed to the optimizer for one
// build. The zero value is a no-op build; use Default for a sensible
// starting point.
type Settings struct {
	Images ImageSettings `json:"images" yaml:"images"`
	CSS    CSSSettings   `json:"css" yaml:"css"`
	JS     JSSettings    `json:"js" yaml:"js"`
	Video  VideoSettings `json:"video" yaml:"video"`
	Fonts  FontSettings  `json:"fonts" yaml:"fonts"`
}

// ImageSettings controls image recompression.
type ImageSettings struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Quality     int    `json:"quality" yaml:"quality"` // 1-100
	Format      string `json:"format" yaml:"format"`   // webp, avif, original
	MaxWidth    int    `json:"max_width" yaml:"max_width"`
	LazyLoading bool   `json:"lazy_loading" yaml:"lazy_loading"`
}

// CSSSettings controls stylesheet processing.
type CSSSettings struct {
	Minify         bool     `json:"minify" yaml:"minify"`
	Purge          bool     `json:"purge" yaml:"purge"`
	InlineCritical bool     `json:"inline_critical" yaml:"inline_critical"`
	Safelist       []string `json:"safelist,omitempty" yaml:"safelist,omitempty"`
}

// JSSettings controls script processing.
type JSSettings struct {
	Minify     bool `json:"minify" yaml:"minify"`
	Defer      bool `json:"defer" yaml:"defer"`
	Aggressive bool `json:"aggressive" yaml:"aggressive"` // dead-code elimination, console stripping
}

// VideoSettings controls heavy-embed handling.
type VideoSettings struct {
	Facade        bool `json:"facade" yaml:"facade"`
	PosterQuality int  `json:"poster_quality" yaml:"poster_quality"`
}

// FontSettings controls webfont handling.
type FontSettings struct {
	SelfHost    bool `json:"self_host" yaml:"self_host"`
	Subset      bool `json:"subset" yaml:"subset"`
	DisplaySwap bool `json:"display_swap" yaml:"display_swap"`
}

// Default returns the planner fallback settings: everything on at moderate
// aggressiveness.
func Default() Settings {
	return Settings{
		Images: ImageSettings{
			Enabled:     true,
			Quality:     75,
			Format:      "webp",
			MaxWidth:    2048,
			LazyLoading: true,
		},
		CSS: CSSSettings{
			Minify:         true,
			Purge:          true,
			InlineCritical: true,
		},
		JS: JSSettings{
			Minify:     true,
			Defer:      true,
			Aggressive: true,
		},
		Video: VideoSettings{
			Facade:        true,
			PosterQuality: 70,
		},
		Fonts: FontSettings{
			SelfHost:    true,
			Subset:      true,
			DisplaySwap: true,
		},
	}
}

// Soften reduces optimization aggressiveness after a failed iteration.
// It touches a fixed subset of flags only, never increases aggressiveness,
// and is idempotent: Soften(Soften(s)) == Soften(s).
func Soften(s Settings) Settings {
	if s.Images.Quality < 80 {
		s.Images.Quality = 80
	}
	s.Images.LazyLoading = false
	s.CSS.Purge = false
	s.JS.Aggressive = false
	return s
}
