// Package filter narrows a stream of entities with client-side predicates.
package filter

import (
	"strings"

	"github.com/tfullert/ultra-cli/pkg/entity"
)

// Predicate decides whether an entity is kept.
type Predicate func(entity.Entity) bool

// Predicates are the filters a listing command accepts. An empty field
// imposes no constraint; the others are ANDed.
type Predicates struct {
	// Name keeps entities whose name contains it, ignoring case.
	Name string
	// Status keeps entities with exactly this status, ignoring case.
	Status string
	// Type keeps entities with exactly this type, ignoring case.
	Type string
	// Owner keeps entities with exactly this owner. For records the owner
	// may be given relative to the zone ("www", "@") or fully qualified;
	// a trailing dot is not significant.
	Owner string
}

// Empty reports whether no predicate is set.
func (p Predicates) Empty() bool {
	return p == Predicates{}
}

// Funcs returns the set predicates in a fixed order.
func (p Predicates) Funcs() []Predicate {
	var out []Predicate
	if p.Name != "" {
		out = append(out, NameContains(p.Name))
	}
	if p.Status != "" {
		out = append(out, FieldEquals(entity.FieldStatus, p.Status))
	}
	if p.Type != "" {
		out = append(out, FieldEquals(entity.FieldType, p.Type))
	}
	if p.Owner != "" {
		out = append(out, OwnerEquals(p.Owner))
	}
	return out
}

// Match reports whether e satisfies every set predicate.
func (p Predicates) Match(e entity.Entity) bool {
	return And(p.Funcs()...)(e)
}

// NameContains matches entities whose name contains substr, ignoring case.
func NameContains(substr string) Predicate {
	needle := strings.ToLower(substr)
	return func(e entity.Entity) bool {
		return strings.Contains(strings.ToLower(e.Value(entity.FieldName)), needle)
	}
}

// FieldEquals matches entities whose field equals value, ignoring case.
// Entities without the field never match.
func FieldEquals(field, value string) Predicate {
	return func(e entity.Entity) bool {
		v, ok := e.Get(field)
		return ok && strings.EqualFold(v, value)
	}
}

// OwnerEquals matches entities owned by owner. Records also match when
// owner is their fully qualified name.
func OwnerEquals(owner string) Predicate {
	want := trimDot(owner)
	return func(e entity.Entity) bool {
		if strings.EqualFold(trimDot(e.Value(entity.FieldOwner)), want) {
			return true
		}
		return e.Kind == entity.KindRecord && strings.EqualFold(trimDot(e.Value(entity.FieldName)), want)
	}
}

func trimDot(s string) string {
	if s == "." {
		return s
	}
	return strings.TrimSuffix(s, ".")
}

// And is the conjunction of preds. With no predicates it matches everything.
func And(preds ...Predicate) Predicate {
	return func(e entity.Entity) bool {
		for _, pred := range preds {
			if !pred(e) {
				return false
			}
		}
		return true
	}
}

// And returns a predicate matching entities that satisfy both p and other.
func (p Predicate) And(other Predicate) Predicate {
	return And(p, other)
}

// Apply returns a lazy iterator over the entities of it that satisfy every
// predicate, in input order. Errors from it are passed through.
func Apply(it entity.Iterator, preds ...Predicate) entity.Iterator {
	if len(preds) == 0 {
		return it
	}
	return &filtered{src: it, keep: And(preds...)}
}

type filtered struct {
	src  entity.Iterator
	keep Predicate
}

func (f *filtered) Next() bool {
	for f.src.Next() {
		if f.keep(f.src.Current()) {
			return true
		}
	}
	return false
}

func (f *filtered) Current() entity.Entity {
	return f.src.Current()
}

func (f *filtered) Err() error {
	return f.src.Err()
}
