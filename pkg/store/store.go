// Package store persists generated layouts.
//
// A [Record] is one generation result: the serialized map layout plus the
// inputs that produced it (the description hash, seed and configuration
// hash). Records are identified by a random UUID assigned at creation.
//
// Backends:
//   - [MemoryStore]: in-process, for tests and the standalone server
//   - [FileStore]: one JSON file per record, for the CLI
//   - [MongoStore]: a MongoDB collection, for shared server deployments
//
// # Usage
//
//	st, err := store.NewFileStore("")  // Uses ~/.config/dungeontower/layouts/
//	if err != nil {
//	    return err
//	}
//	rec := store.NewRecord(doc, descHash)
//	if err := st.Put(ctx, rec); err != nil {
//	    return err
//	}
//	rec, err = st.Get(ctx, rec.ID)
//	if errors.Is(err, store.ErrNotFound) {
//	    // no such layout
//	}
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/dungeontower/pkg/maplayout"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Record is a stored generation result.
type Record struct {
	ID         string              `json:"id" bson:"_id"`
	DescHash   string              `json:"desc_hash" bson:"desc_hash"`
	ConfigHash string              `json:"config_hash,omitempty" bson:"config_hash,omitempty"`
	Layout     *maplayout.Document `json:"layout" bson:"layout"`
	CreatedAt  time.Time           `json:"created_at" bson:"created_at"`
}

// NewRecord wraps doc in a record with a fresh ID.
func NewRecord(doc *maplayout.Document, descHash string) *Record {
	return &Record{
		ID:        uuid.NewString(),
		DescHash:  descHash,
		Layout:    doc,
		CreatedAt: time.Now().UTC(),
	}
}

// Summary is the listing form of a record.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Rooms     int       `json:"rooms"`
	Seed      uint64    `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
}

// Summarize returns the listing form of r.
func (r *Record) Summarize() Summary {
	s := Summary{ID: r.ID, CreatedAt: r.CreatedAt}
	if r.Layout != nil {
		s.Name = r.Layout.Name
		s.Rooms = len(r.Layout.Rooms)
		s.Seed = r.Layout.Seed
	}
	return s
}

// Store is the interface for record storage backends.
type Store interface {
	// Get retrieves a record by ID. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Put stores a record, replacing any record with the same ID.
	Put(ctx context.Context, rec *Record) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// List returns up to limit records, newest first. A limit of zero or
	// less means DefaultListLimit.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Close releases backend resources.
	Close() error
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
