package codec

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry maps discriminators to schemas. It is written during startup and
// read concurrently afterwards.
type Registry struct {
	mu     sync.RWMutex
	byKind map[string]*Schema
	byDisc map[[DiscriminatorSize]byte]*Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byKind: make(map[string]*Schema),
		byDisc: make(map[[DiscriminatorSize]byte]*Schema),
	}
}

// Register adds a schema. Registering an identical schema again is a no-op
// that returns the existing schema. Reusing a kind or discriminator for a
// different definition fails with ErrSchemaConflict.
func (r *Registry) Register(kind string, discriminator []byte, fields ...Field) (*Schema, error) {
	schema, err := newSchema(kind, discriminator, fields)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schema for %s", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKind[kind]; ok {
		if existing.equal(schema) {
			return existing, nil
		}
		return nil, errors.Wrapf(ErrSchemaConflict, "kind %s already registered", kind)
	}
	if existing, ok := r.byDisc[schema.discriminator]; ok {
		return nil, errors.Wrapf(ErrSchemaConflict, "discriminator of %s already registered to %s", kind, existing.kind)
	}

	r.byKind[kind] = schema
	r.byDisc[schema.discriminator] = schema
	return schema, nil
}

// MustRegister is Register, but panics on error.
func (r *Registry) MustRegister(kind string, discriminator []byte, fields ...Field) *Schema {
	schema, err := r.Register(kind, discriminator, fields...)
	if err != nil {
		panic(err)
	}
	return schema
}

// Schema returns the schema registered for kind.
func (r *Registry) Schema(kind string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, ok := r.byKind[kind]
	if !ok {
		return nil, errors.Wrap(ErrUnknownKind, kind)
	}
	return schema, nil
}

// Kinds returns the number of registered schemas.
func (r *Registry) Kinds() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byKind)
}

// Decode identifies the schema of data by its discriminator and decodes it.
func (r *Registry) Decode(data []byte) (*Record, error) {
	if len(data) < DiscriminatorSize {
		return nil, errors.Wrapf(ErrSchemaMismatch, "data too short for discriminator: %d bytes", len(data))
	}

	var disc [DiscriminatorSize]byte
	copy(disc[:], data)

	r.mu.RLock()
	schema, ok := r.byDisc[disc]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrSchemaMismatch, "unknown discriminator %x", disc)
	}

	return schema.Decode(data)
}

// DecodeAs decodes data, requiring it to be of the provided kind.
func (r *Registry) DecodeAs(kind string, data []byte) (*Record, error) {
	schema, err := r.Schema(kind)
	if err != nil {
		return nil, err
	}
	return schema.Decode(data)
}
