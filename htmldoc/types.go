package htmldoc

// NavigationExclusionMode controls how much boilerplate is removed beyond
// the script, style, nav, header, footer and aside subtrees, which are
// always dropped.
type NavigationExclusionMode int

const (
	// NavigationExclusionNone drops only the semantic boilerplate elements.
	NavigationExclusionNone NavigationExclusionMode = iota

	// NavigationExclusionStandard also drops elements whose class, id or
	// ARIA role names navigation, menus, banners, footers or sidebars.
	NavigationExclusionStandard

	// NavigationExclusionAggressive adds a link-density check: block
	// containers with at least four links making up most of their text are
	// dropped. Link-heavy content such as reference lists may be lost.
	NavigationExclusionAggressive
)

// Option configures a Reader.
type Option func(*Reader)

// WithExclusion sets the boilerplate exclusion mode. The default is
// NavigationExclusionStandard.
func WithExclusion(mode NavigationExclusionMode) Option {
	return func(r *Reader) { r.mode = mode }
}

// WithMaxImages caps the number of inline data: images decoded.
func WithMaxImages(n int) Option {
	return func(r *Reader) { r.maxImages = n }
}
