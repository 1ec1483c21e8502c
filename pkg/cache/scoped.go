package cache

// ScopedKeyer wraps a Keyer with a prefix, so several configurations can
// share one backend without colliding.
//
// Example usage:
//
//	// Keys of one project in a shared Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "project:coax:")
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

// ModelKey generates a prefixed model key.
func (k *ScopedKeyer) ModelKey(geometry string, opts ModelKeyOpts) (string, error) {
	key, err := k.inner.ModelKey(geometry, opts)
	if err != nil {
		return "", err
	}
	return k.prefix + key, nil
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(modelHash string, opts ArtifactKeyOpts) (string, error) {
	key, err := k.inner.ArtifactKey(modelHash, opts)
	if err != nil {
		return "", err
	}
	return k.prefix + key, nil
}
