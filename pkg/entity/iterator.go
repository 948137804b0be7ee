package entity

// Iterator is a forward-only, single-use stream of entities.
//
//	for it.Next() {
//	    e := it.Current()
//	    ...
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
//
// Next blocks while the next batch is retrieved. Once Next returns false it
// keeps returning false and Err reports why the stream ended (nil when it
// was exhausted normally).
type Iterator interface {
	Next() bool
	Current() Entity
	Err() error
}

// sliceIterator walks an in-memory slice.
type sliceIterator struct {
	entities []Entity
	pos      int
	err      error
}

// FromSlice returns an Iterator over entities. If err is non-nil it is
// reported by Err once the slice is exhausted, which models a stream that
// failed after partial output.
func FromSlice(entities []Entity, err error) Iterator {
	return &sliceIterator{entities: entities, pos: -1, err: err}
}

func (s *sliceIterator) Next() bool {
	if s.pos+1 >= len(s.entities) {
		s.pos = len(s.entities)
		return false
	}
	s.pos++
	return true
}

func (s *sliceIterator) Current() Entity {
	if s.pos < 0 || s.pos >= len(s.entities) {
		return Entity{}
	}
	return s.entities[s.pos]
}

func (s *sliceIterator) Err() error {
	if s.pos >= len(s.entities) {
		return s.err
	}
	return nil
}

// Collect drains it into a slice. Entities read before a failure are
// returned together with the error.
func Collect(it Iterator) ([]Entity, error) {
	var out []Entity
	for it.Next() {
		out = append(out, it.Current())
	}
	return out, it.Err()
}
