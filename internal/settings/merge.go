package settings

// Override is a sparse settings delta as returned by the reviewer. Nil
// fields leave the current value untouched; non-nil scalars and slices
// replace, non-nil sub-objects recurse.
type Override struct {
	Images *ImageOverride `json:"images,omitempty"`
	CSS    *CSSOverride   `json:"css,omitempty"`
	JS     *JSOverride    `json:"js,omitempty"`
	Video  *VideoOverride `json:"video,omitempty"`
	Fonts  *FontOverride  `json:"fonts,omitempty"`
}

// ImageOverride is a sparse delta for ImageSettings.
type ImageOverride struct {
	Enabled     *bool   `json:"enabled,omitempty"`
	Quality     *int    `json:"quality,omitempty"`
	Format      *string `json:"format,omitempty"`
	MaxWidth    *int    `json:"max_width,omitempty"`
	LazyLoading *bool   `json:"lazy_loading,omitempty"`
}

// CSSOverride is a sparse delta for CSSSettings.
type CSSOverride struct {
	Minify         *bool    `json:"minify,omitempty"`
	Purge          *bool    `json:"purge,omitempty"`
	InlineCritical *bool    `json:"inline_critical,omitempty"`
	Safelist       []string `json:"safelist,omitempty"`
}

// JSOverride is a sparse delta for JSSettings.
type JSOverride struct {
	Minify     *bool `json:"minify,omitempty"`
	Defer      *bool `json:"defer,omitempty"`
	Aggressive *bool `json:"aggressive,omitempty"`
}

// VideoOverride is a sparse delta for VideoSettings.
type VideoOverride struct {
	Facade        *bool `json:"facade,omitempty"`
	PosterQuality *int  `json:"poster_quality,omitempty"`
}

// FontOverride is a sparse delta for FontSettings.
type FontOverride struct {
	SelfHost    *bool `json:"self_host,omitempty"`
	Subset      *bool `json:"subset,omitempty"`
	DisplaySwap *bool `json:"display_swap,omitempty"`
}

// IsZero reports whether the override carries no changes at all.
func (o *Override) IsZero() bool {
	return o == nil || (o.Images == nil && o.CSS == nil && o.JS == nil && o.Video == nil && o.Fonts == nil)
}

// Merge applies a sparse override to a settings value and returns the
// result. The receiver semantics match a recursive object merge: scalars
// and arrays in the override replace, sub-objects recurse.
func Merge(s Settings, o *Override) Settings {
	if o == nil {
		return s
	}
	if o.Images != nil {
		setBool(&s.Images.Enabled, o.Images.Enabled)
		setInt(&s.Images.Quality, o.Images.Quality)
		setString(&s.Images.Format, o.Images.Format)
		setInt(&s.Images.MaxWidth, o.Images.MaxWidth)
		setBool(&s.Images.LazyLoading, o.Images.LazyLoading)
	}
	if o.CSS != nil {
		setBool(&s.CSS.Minify, o.CSS.Minify)
		setBool(&s.CSS.Purge, o.CSS.Purge)
		setBool(&s.CSS.InlineCritical, o.CSS.InlineCritical)
		if o.CSS.Safelist != nil {
			s.CSS.Safelist = append([]string(nil), o.CSS.Safelist...)
		}
	}
	if o.JS != nil {
		setBool(&s.JS.Minify, o.JS.Minify)
		setBool(&s.JS.Defer, o.JS.Defer)
		setBool(&s.JS.Aggressive, o.JS.Aggressive)
	}
	if o.Video != nil {
		setBool(&s.Video.Facade, o.Video.Facade)
		setInt(&s.Video.PosterQuality, o.Video.PosterQuality)
	}
	if o.Fonts != nil {
		setBool(&s.Fonts.SelfHost, o.Fonts.SelfHost)
		setBool(&s.Fonts.Subset, o.Fonts.Subset)
		setBool(&s.Fonts.DisplaySwap, o.Fonts.DisplaySwap)
	}
	return s
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
