package service

import "github.com/google/uuid"

// IDGenerator mints run correlation identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// RandomIDGenerator produces uuid-based run IDs with an optional prefix.
type RandomIDGenerator struct {
	prefix string
}

func NewRandomIDGenerator(prefix string) *RandomIDGenerator {
	return &RandomIDGenerator{prefix: prefix}
}

func (g *RandomIDGenerator) NewID() (string, error) {
	return g.prefix + uuid.NewString(), nil
}
