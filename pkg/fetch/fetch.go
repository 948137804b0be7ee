// Package fetch walks paginated collections and exposes them as a single
// lazy stream of entities.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"

	"github.com/tfullert/ultra-cli/pkg/entity"
	"github.com/tfullert/ultra-cli/pkg/retry"
	"github.com/tfullert/ultra-cli/pkg/status"
	"github.com/tfullert/ultra-cli/pkg/ultradns"
)

const (
	// DefaultPageSize is the limit requested per page.
	DefaultPageSize = 100
	// DefaultMaxPages bounds the pages read from one collection.
	DefaultMaxPages = 10000
)

// PageSource retrieves one page of a collection. *ultradns.Client
// satisfies it.
type PageSource interface {
	FetchPage(ctx context.Context, token string, req ultradns.PageRequest) (*entity.Page, error)
}

// TokenSource supplies bearer tokens. *auth.Provider satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate discards a token the server rejected and reports whether
	// a replacement can be obtained.
	Invalidate(token string) bool
}

// Query describes what to list.
type Query struct {
	Kind entity.Kind
	// Zones restricts a record listing to these zones, read in this order.
	// When empty, records of every zone visible to the token are listed.
	// Ignored for zone listings.
	Zones []string
	// Filters are server-side search terms sent with every page request.
	Filters map[string]string
}

// Fetcher turns queries into entity streams.
type Fetcher struct {
	pages    PageSource
	tokens   TokenSource
	policy   retry.Policy
	sleep    retry.SleepFunc
	pageSize int
	maxPages int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPolicy sets the retry policy for page requests.
func WithPolicy(p retry.Policy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// WithSleep sets the function used to wait between attempts.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// WithPageSize sets the page size requested from the server.
func WithPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithMaxPages bounds the number of pages read from one collection.
func WithMaxPages(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxPages = n
		}
	}
}

// New returns a Fetcher reading pages from pages with tokens from tokens.
func New(pages PageSource, tokens TokenSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		pages:    pages,
		tokens:   tokens,
		policy:   retry.DefaultPolicy(),
		sleep:    retry.Sleep,
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll returns a lazy stream over every entity matching q, in server
// order. Nothing is requested until the first call to Next, and at most
// one page request is in flight at any time. Record listings over several
// zones read each zone to the end before starting the next.
//
// A page that cannot be read after the retry policy is spent ends the
// stream with a FetchFailed error; entities already returned stay valid.
// Cancelling ctx ends the stream with the context error.
func (f *Fetcher) FetchAll(ctx context.Context, q Query) entity.Iterator {
	s := &stream{f: f, ctx: ctx, q: q}

	switch q.Kind {
	case entity.KindZone:
		s.zones = []string{""}
	case entity.KindRecord:
		if len(q.Zones) == 0 {
			s.zoneSrc = f.FetchAll(ctx, Query{Kind: entity.KindZone})
			break
		}
		zones, err := NormalizeZones(q.Zones)
		if err != nil {
			s.fail(err)
			break
		}
		s.zones = zones
	default:
		s.fail(fmt.Errorf("unsupported resource kind %q", q.Kind))
	}
	return s
}

// NormalizeZone converts a zone name to its ASCII, fully qualified form.
func NormalizeZone(name string) (string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(name), ".")
	if trimmed == "" {
		return "", fmt.Errorf("invalid zone name %q: empty", name)
	}
	ascii, err := idna.Lookup.ToASCII(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid zone name %q: %w", name, err)
	}
	fqdn := dns.Fqdn(ascii)
	if _, ok := dns.IsDomainName(fqdn); !ok {
		return "", fmt.Errorf("invalid zone name %q", name)
	}
	return fqdn, nil
}

// NormalizeZones normalizes names and drops repeats, keeping the first
// occurrence of each zone.
func NormalizeZones(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		zone, err := NormalizeZone(name)
		if err != nil {
			return nil, err
		}
		if seen[zone] {
			continue
		}
		seen[zone] = true
		out = append(out, zone)
	}
	return out, nil
}

// errUnauthorized is implemented by API errors for rejected tokens.
type errUnauthorized interface {
	Unauthorized() bool
}

func (f *Fetcher) observer(ctx context.Context, resource string) retry.Observer {
	return func(attempt int, err error, delay time.Duration) {
		slog.Debug("Page request failed, retrying",
			"resource", resource,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		status.Retrying(ctx, resource, attempt, delay, err)
	}
}

// fetchPage reads one page, retrying per the policy. A rejected token is
// replaced once per page when the token source can do so.
func (f *Fetcher) fetchPage(ctx context.Context, req ultradns.PageRequest) (*entity.Page, error) {
	reauthenticated := false
	for {
		token, err := f.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		var page *entity.Page
		_, err = retry.Do(ctx, f.policy, f.sleep, f.observer(ctx, req.Kind.Plural()),
			func(ctx context.Context, attempt int) error {
				p, err := f.pages.FetchPage(ctx, token, req)
				if err != nil {
					return err
				}
				page = p
				return nil
			})
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		var unauth errUnauthorized
		if !reauthenticated && errors.As(err, &unauth) && unauth.Unauthorized() && f.tokens.Invalidate(token) {
			slog.Debug("Token rejected, authenticating again", "resource", req.Kind.Plural())
			reauthenticated = true
			continue
		}
		return nil, err
	}
}
