package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/tfullert/ultra-cli/pkg/credentials"
	"github.com/tfullert/ultra-cli/pkg/errkind"
	"github.com/tfullert/ultra-cli/pkg/retry"
	"github.com/tfullert/ultra-cli/pkg/status"
	"github.com/tfullert/ultra-cli/pkg/ultradns"
)

// DefaultMargin is how long before expiry a token is replaced.
const DefaultMargin = 60 * time.Second

// Exchanger trades a username and password for an access token.
// *ultradns.Client satisfies it.
type Exchanger interface {
	Authenticate(ctx context.Context, username, password string) (*ultradns.TokenGrant, error)
}

// Provider hands out valid access tokens for one set of credentials. With a
// username and password it authenticates lazily and again whenever the
// current token is within the refresh margin of expiry; concurrent callers
// share a single token request. With a bearer token it returns that token
// and never contacts the token endpoint.
type Provider struct {
	creds     credentials.Credentials
	exchanger Exchanger
	now       func() time.Time
	sleep     retry.SleepFunc
	policy    retry.Policy
	margin    time.Duration

	mu      sync.RWMutex
	session *Session
	group   singleflight.Group
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithSleep sets the function used to wait between token request attempts.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(p *Provider) { p.sleep = sleep }
}

// WithPolicy sets the retry policy for token requests.
func WithPolicy(policy retry.Policy) Option {
	return func(p *Provider) { p.policy = policy }
}

// WithMargin sets the refresh margin.
func WithMargin(margin time.Duration) Option {
	return func(p *Provider) { p.margin = margin }
}

// NewProvider returns a Provider for creds. exchanger may be nil for
// bearer-token credentials.
func NewProvider(creds credentials.Credentials, exchanger Exchanger, opts ...Option) *Provider {
	p := &Provider{
		creds:     creds,
		exchanger: exchanger,
		now:       time.Now,
		sleep:     retry.Sleep,
		policy:    retry.DefaultPolicy(),
		margin:    DefaultMargin,
	}
	for _, opt := range opts {
		opt(p)
	}

	if bt, ok := creds.(credentials.BearerToken); ok {
		p.session = &Session{Token: bt.Token, IssuedAt: p.now(), ReadOnly: true}
	}
	return p
}

// ReadOnly reports whether the provider works from a caller-supplied token.
func (p *Provider) ReadOnly() bool {
	_, ok := p.creds.(credentials.BearerToken)
	return ok
}

// RequireWritable fails with ReadOnlyToken when the credentials cannot
// perform mutations. It makes no network call.
func (p *Provider) RequireWritable() error {
	if p.ReadOnly() {
		return Session{ReadOnly: true}.RequireWritable()
	}
	return nil
}

// Session returns a copy of the current session, if there is one.
func (p *Provider) Session() (Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return Session{}, false
	}
	return *p.session, true
}

// Token returns an access token valid for at least the refresh margin.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.RLock()
	s := p.session
	p.mu.RUnlock()
	if s != nil && s.Valid(p.now(), p.margin) {
		return s.Token, nil
	}

	up, ok := p.creds.(credentials.UsernamePassword)
	if !ok {
		// A bearer session is always valid, so this is an empty token.
		return "", errkind.Newf(errkind.MissingCredentials, "", "no usable credentials")
	}

	// Callers share the first caller's request, including its context.
	ch := p.group.DoChan("token", func() (any, error) {
		return p.authenticate(ctx, up)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(*Session).Token, nil
	}
}

// Invalidate discards token if it is the current one, so the next Token
// call authenticates again. It reports whether a replacement can be
// obtained, which is never the case for a caller-supplied token.
func (p *Provider) Invalidate(token string) bool {
	if p.ReadOnly() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil && p.session.Token == token {
		p.session = nil
	}
	return true
}

func (p *Provider) authenticate(ctx context.Context, up credentials.UsernamePassword) (*Session, error) {
	tracer := otel.Tracer("ultra-cli")
	ctx, span := tracer.Start(ctx, "auth.authenticate")
	defer span.End()

	// Another caller may have refreshed while this one waited to get here.
	p.mu.RLock()
	s := p.session
	p.mu.RUnlock()
	if s != nil && s.Valid(p.now(), p.margin) {
		return s, nil
	}

	if p.exchanger == nil {
		return nil, errkind.Newf(errkind.AuthenticationFailed, "authenticate", "no token endpoint configured")
	}

	var grant *ultradns.TokenGrant
	issuedAt := p.now()
	attempts, err := retry.Do(ctx, p.policy, p.sleep,
		func(attempt int, err error, delay time.Duration) {
			slog.Debug("Token request failed, retrying", "attempt", attempt, "delay", delay, "error", err)
			if ctx.Err() != nil {
				return
			}
			status.Retrying(ctx, "token", attempt, delay, err)
		},
		func(ctx context.Context, attempt int) error {
			issuedAt = p.now()
			g, err := p.exchanger.Authenticate(ctx, up.Username, up.Password)
			if err != nil {
				return err
			}
			grant = g
			return nil
		})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		span.RecordError(err)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("authentication interrupted: %w", err)
		}
		return nil, errkind.New(errkind.AuthenticationFailed, "authenticate", err)
	}

	session := &Session{
		Token:    grant.AccessToken,
		IssuedAt: issuedAt,
		TTL:      grant.ExpiresIn,
	}
	span.SetAttributes(attribute.String("expires_at", session.ExpiresAt().Format(time.RFC3339)))
	slog.Debug("Authenticated", "username", up.Username, "ttl", grant.ExpiresIn)
	status.Infof(ctx, "authenticated as %s, token valid for %s", up.Username, grant.ExpiresIn)

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()
	return session, nil
}
