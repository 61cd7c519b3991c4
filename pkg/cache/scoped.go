package cache

// ScopedKeyer wraps a Keyer with a prefix. The pipeline scopes keys by the
// cache format version so entries written by an older build are never
// decoded by a newer one.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SpacesKey generates a prefixed key for configuration spaces.
func (k *ScopedKeyer) SpacesKey(descHash string) string {
	return k.prefix + k.inner.SpacesKey(descHash)
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(descHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(descHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
