// Package schema supplies the object-schema snapshots consumed by the
// binding layer: named, ordered property descriptions of record types.
// Property order is significant: positional array marshalling pairs
// elements with properties in declaration order.
package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// validate is a package-level singleton; building a validator per call is
// expensive because it caches struct metadata.
var validate = validator.New()

// Property describes one named property of an object schema.
type Property struct {
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type" validate:"required"`
	Optional bool   `json:"optional,omitempty"`
}

// ObjectSchema is the ordered property list of one record type.
type ObjectSchema struct {
	Name       string     `json:"name" validate:"required"`
	Properties []Property `json:"properties" validate:"required,min=1,unique=Name,dive"`
}

// Property returns the named property descriptor.
func (s *ObjectSchema) Property(name string) (*Property, bool) {
	for i := range s.Properties {
		if s.Properties[i].Name == name {
			return &s.Properties[i], true
		}
	}
	return nil, false
}

// PropertyIndex returns the declaration position of the named property, or
// -1 when absent.
func (s *ObjectSchema) PropertyIndex(name string) int {
	for i := range s.Properties {
		if s.Properties[i].Name == name {
			return i
		}
	}
	return -1
}

// Snapshot is a read-only collection of object schemas, typically loaded
// once at startup and shared.
type Snapshot struct {
	Objects []ObjectSchema `json:"objects" validate:"required,min=1,unique=Name,dive"`
}

// Lookup returns the object schema registered under name.
func (s *Snapshot) Lookup(name string) (*ObjectSchema, bool) {
	for i := range s.Objects {
		if s.Objects[i].Name == name {
			return &s.Objects[i], true
		}
	}
	return nil, false
}

// Parse decodes and validates a snapshot document.
func Parse(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := validate.Struct(&snap); err != nil {
		return nil, fmt.Errorf("snapshot validation failed: %w", err)
	}
	return &snap, nil
}

// ParseBytes decodes and validates a snapshot document held in memory.
func ParseBytes(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := validate.Struct(&snap); err != nil {
		return nil, fmt.Errorf("snapshot validation failed: %w", err)
	}
	return &snap, nil
}

// LoadFile reads and parses a snapshot document from disk.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// DocumentSchema publishes the snapshot wire format as a JSON Schema
// document, for editor integration and out-of-process validation.
func DocumentSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	s := reflector.Reflect(&Snapshot{})
	return json.MarshalIndent(s, "", "  ")
}
