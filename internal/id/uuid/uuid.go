// Package uuid generates internal record identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator issues time-ordered UUIDv7 strings, so internal ids sort by the
// moment a record was built.
type Generator struct {
	next func() (uuid.UUID, error)
}

// New creates a Generator backed by uuid.NewV7.
func New() *Generator {
	return &Generator{next: uuid.NewV7}
}

// NewID implements ingest.IDGenerator.
func (g *Generator) NewID() (string, error) {
	id, err := g.next()
	if err != nil {
		return "", fmt.Errorf("generate internal id: %w", err)
	}
	return id.String(), nil
}
