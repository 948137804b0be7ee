package fetch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tfullert/ultra-cli/pkg/entity"
	"github.com/tfullert/ultra-cli/pkg/errkind"
	"github.com/tfullert/ultra-cli/pkg/status"
	"github.com/tfullert/ultra-cli/pkg/ultradns"
)

// stream is the entity.Iterator returned by FetchAll. It walks a sequence
// of collections (one per zone for records, a single one for zones) and
// within each collection follows the server's cursors until a page arrives
// without one.
type stream struct {
	f   *Fetcher
	ctx context.Context
	q   Query

	// Collections still to read. zoneSrc, when set, supplies them lazily.
	zones   []string
	zoneSrc entity.Iterator

	// Current collection.
	active bool
	zone   string
	cursor *entity.Cursor
	pages  int
	seen   map[string]bool

	buf     []entity.Entity
	pos     int
	current entity.Entity
	fetched int

	err  error
	done bool
}

func (s *stream) Next() bool {
	for {
		if s.done {
			return false
		}
		if s.pos < len(s.buf) {
			s.current = s.buf[s.pos]
			s.pos++
			return true
		}
		if s.active {
			s.readPage()
			continue
		}
		if !s.nextCollection() {
			s.done = true
			return false
		}
	}
}

func (s *stream) Current() entity.Entity {
	return s.current
}

func (s *stream) Err() error {
	if !s.done {
		return nil
	}
	return s.err
}

func (s *stream) fail(err error) {
	s.err = err
	s.done = true
	s.buf = nil
	s.pos = 0
}

// nextCollection starts the next collection, reporting false when there is
// none or the stream failed.
func (s *stream) nextCollection() bool {
	var zone string
	switch {
	case s.zoneSrc != nil:
		if !s.zoneSrc.Next() {
			if err := s.zoneSrc.Err(); err != nil {
				s.fail(err)
			}
			return false
		}
		zone = s.zoneSrc.Current().Value(entity.FieldName)
	case len(s.zones) > 0:
		zone = s.zones[0]
		s.zones = s.zones[1:]
	default:
		return false
	}

	s.active = true
	s.zone = zone
	s.cursor = nil
	s.pages = 0
	s.seen = map[string]bool{startKey(s.q.Kind): true}
	return true
}

// startKey is the cursor key of a collection's first page.
func startKey(kind entity.Kind) string {
	if kind == entity.KindRecord {
		return entity.Cursor{}.String()
	}
	return ""
}

// readPage fetches the page at the current cursor into buf.
func (s *stream) readPage() {
	if err := s.ctx.Err(); err != nil {
		s.fail(fmt.Errorf("listing %s interrupted: %w", s.q.Kind.Plural(), err))
		return
	}

	tracer := otel.Tracer("ultra-cli")
	ctx, span := tracer.Start(s.ctx, "fetch.readPage")
	defer span.End()

	s.pages++
	span.SetAttributes(
		attribute.String("kind", string(s.q.Kind)),
		attribute.String("zone", s.zone),
		attribute.Int("page", s.pages),
	)

	if s.pages > s.f.maxPages {
		err := errkind.Newf(errkind.FetchFailed, s.op(), "gave up after %d pages", s.f.maxPages)
		span.RecordError(err)
		s.fail(err)
		return
	}

	req := ultradns.PageRequest{
		Kind:   s.q.Kind,
		Zone:   s.zone,
		Query:  s.q.Filters,
		Cursor: s.cursor,
		Limit:  s.f.pageSize,
	}
	page, err := s.f.fetchPage(ctx, req)
	if err != nil {
		span.RecordError(err)
		switch {
		case s.ctx.Err() != nil:
			s.fail(fmt.Errorf("listing %s interrupted: %w", s.q.Kind.Plural(), err))
		case errkind.KindOf(err) != "":
			s.fail(err)
		default:
			s.fail(errkind.New(errkind.FetchFailed, s.op(), err))
		}
		return
	}

	s.buf = page.Entities
	s.pos = 0
	s.fetched += len(page.Entities)
	span.SetAttributes(
		attribute.Int("returned", len(page.Entities)),
		attribute.Bool("last", page.Last()),
	)
	status.PageFetched(s.ctx, s.q.Kind.Plural(), s.zone, s.pages, s.fetched)

	if page.Last() {
		s.active = false
		return
	}

	key := page.Next.String()
	if s.seen[key] {
		err := errkind.Newf(errkind.FetchFailed, s.op(), "server returned an already visited cursor %q", key)
		span.RecordError(err)
		// Entities of this page are still delivered before the error.
		s.err = err
		s.active = false
		s.zones = nil
		s.zoneSrc = nil
		return
	}
	s.seen[key] = true
	s.cursor = page.Next
}

func (s *stream) op() string {
	if s.zone == "" {
		return "list " + s.q.Kind.Plural()
	}
	return fmt.Sprintf("list %s of %s", s.q.Kind.Plural(), s.zone)
}
