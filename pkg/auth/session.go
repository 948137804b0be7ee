package auth

import (
	"time"

	"github.com/tfullert/ultra-cli/pkg/errkind"
)

// Session is an access token together with what is known about its
// lifetime. Sessions built from a caller-supplied token have no known
// lifetime and are read-only.
type Session struct {
	Token    string
	IssuedAt time.Time
	// TTL is the lifetime reported by the token endpoint. Zero means unknown.
	TTL      time.Duration
	ReadOnly bool
}

// ExpiresAt returns when the token stops being accepted, or the zero time
// when the lifetime is unknown.
func (s Session) ExpiresAt() time.Time {
	if s.TTL <= 0 {
		return time.Time{}
	}
	return s.IssuedAt.Add(s.TTL)
}

// Valid reports whether the token can still be used at now, keeping margin
// in reserve before expiry. Tokens with an unknown lifetime are always
// considered valid; the server is the judge of those.
func (s Session) Valid(now time.Time, margin time.Duration) bool {
	if s.Token == "" {
		return false
	}
	if s.TTL <= 0 {
		return true
	}
	return now.Before(s.IssuedAt.Add(s.TTL - EffectiveMargin(s.TTL, margin)))
}

// RequireWritable fails with ReadOnlyToken for read-only sessions.
func (s Session) RequireWritable() error {
	if s.ReadOnly {
		return errkind.Newf(errkind.ReadOnlyToken, "",
			"mutating operations require username and password credentials; a supplied token is read-only")
	}
	return nil
}

// EffectiveMargin returns the refresh margin used for a token of lifetime
// ttl. A margin that would consume the whole lifetime is reduced to a tenth
// of it.
func EffectiveMargin(ttl, margin time.Duration) time.Duration {
	if margin < 0 {
		return 0
	}
	if ttl > 0 && margin >= ttl {
		return ttl / 10
	}
	return margin
}
