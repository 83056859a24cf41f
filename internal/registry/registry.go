// Package registry maps wire type identifiers to codecs.
package registry

import (
	"fmt"
	"strings"

	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/chaisql/wirecodec/internal/codec/bytea"
	"github.com/chaisql/wirecodec/internal/codec/jsonb"
	"github.com/chaisql/wirecodec/internal/codec/text"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/encoding"
)

// Object identifiers of the built-in types.
const (
	ByteaOID    uint32 = 17
	TextOID     uint32 = 25
	JSONOID     uint32 = 114
	JSONBOID    uint32 = 3802
	JSONPathOID uint32 = 4072
)

// ErrAlreadyRegistered is returned when registering an OID or a name twice.
var ErrAlreadyRegistered = errors.New("type already registered")

// NotFoundError is returned when no codec is registered for a type.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("type %s not found", e.Name)
}

func IsNotFoundError(err error) bool {
	return errors.HasType(err, NotFoundError{})
}

// Entry binds a type to its codec.
type Entry struct {
	OID   uint32
	Name  string
	Codec codec.Codec
}

// Registry is a set of entries indexed by OID and name.
// It is not safe for concurrent registration; lookups may run concurrently
// once registration is over.
type Registry struct {
	byOID  map[uint32]*Entry
	byName map[string]*Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byOID:  make(map[uint32]*Entry),
		byName: make(map[string]*Entry),
	}
}

// Options configures the built-in codecs.
type Options struct {
	// Encoding is the character encoding of text payloads. Nil means UTF-8.
	Encoding encoding.Encoding
}

// Default returns a registry holding the built-in types.
func Default(opts Options) *Registry {
	var topts []text.Option
	if opts.Encoding != nil {
		topts = append(topts, text.WithEncoding(opts.Encoding))
	}

	r := New()
	for _, e := range []Entry{
		{OID: ByteaOID, Name: "bytea", Codec: bytea.Codec{}},
		{OID: TextOID, Name: "text", Codec: text.New(topts...)},
		{OID: JSONOID, Name: "json", Codec: jsonb.NewJSON(topts...)},
		{OID: JSONBOID, Name: "jsonb", Codec: jsonb.New(topts...)},
		{OID: JSONPathOID, Name: "jsonpath", Codec: jsonb.NewPath(topts...)},
	} {
		err := r.Register(e)
		if err != nil {
			panic(err)
		}
	}

	return r
}

// Register adds e to the registry.
func (r *Registry) Register(e Entry) error {
	name := normalize(e.Name)
	if name == "" {
		return errors.New("type name cannot be empty")
	}
	if e.Codec == nil {
		return errors.Newf("type %s has no codec", name)
	}

	if _, ok := r.byOID[e.OID]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "oid %d", e.OID)
	}
	if _, ok := r.byName[name]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "name %s", name)
	}

	e.Name = name
	r.byOID[e.OID] = &e
	r.byName[name] = &e
	return nil
}

// Lookup returns the entry registered under oid.
func (r *Registry) Lookup(oid uint32) (Entry, error) {
	e, ok := r.byOID[oid]
	if !ok {
		return Entry{}, errors.WithStack(NotFoundError{Name: fmt.Sprintf("oid %d", oid)})
	}

	return *e, nil
}

// LookupName returns the entry registered under name. Names are case insensitive.
func (r *Registry) LookupName(name string) (Entry, error) {
	e, ok := r.byName[normalize(name)]
	if !ok {
		return Entry{}, errors.WithStack(NotFoundError{Name: name})
	}

	return *e, nil
}

// Entries returns all the entries sorted by OID.
func (r *Registry) Entries() []Entry {
	oids := maps.Keys(r.byOID)
	slices.Sort(oids)

	entries := make([]Entry, 0, len(oids))
	for _, oid := range oids {
		entries = append(entries, *r.byOID[oid])
	}

	return entries
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
