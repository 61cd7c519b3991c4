package pipeline

import (
	"github.com/matzehuels/dungeontower/pkg/cache"
	"github.com/matzehuels/dungeontower/pkg/mapdesc"
)

// Describe builds the description of doc and hashes its normalized form.
// Two documents that differ only in formatting or key order hash alike.
func Describe(doc *mapdesc.Document) (*mapdesc.Description[string], string, error) {
	desc, err := doc.Description()
	if err != nil {
		return nil, "", err
	}
	data, err := doc.Marshal()
	if err != nil {
		return nil, "", err
	}
	return desc, cache.Hash(data), nil
}
