package cache

import "fmt"

// Keyer builds cache keys.
type Keyer interface {
	// SpacesKey keys configuration spaces by the hash of the normalized
	// map description.
	SpacesKey(descHash string) string

	// LayoutKey keys a generated layout by description hash, seed and
	// generation config.
	LayoutKey(descHash string, opts LayoutKeyOpts) string

	// ArtifactKey keys a rendered file by the hash of its layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the inputs besides the description that determine a
// layout.
type LayoutKeyOpts struct {
	Seed       uint64 `json:"seed"`
	ConfigHash string `json:"config_hash"`
}

// ArtifactKeyOpts are the render options that determine an artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Scale  int    `json:"scale"`
	Labels bool   `json:"labels"`
	Doors  bool   `json:"doors"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SpacesKey implements Keyer.
func (DefaultKeyer) SpacesKey(descHash string) string {
	return fmt.Sprintf("%s:%s", KeyTypeSpaces, descHash)
}

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(descHash string, opts LayoutKeyOpts) string {
	return hashKey(KeyTypeLayout, descHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, layoutHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}
