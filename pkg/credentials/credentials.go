package credentials

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tfullert/ultra-cli/pkg/errkind"
)

// Environment variables consulted when a value is not given on the command line.
const (
	EnvUsername = "ULTRA_UNAME"
	EnvPassword = "ULTRA_PWORD"
	EnvToken    = "ULTRA_TOKEN"
)

// Credentials is the authentication mode chosen for one invocation. It is
// either UsernamePassword or BearerToken.
type Credentials interface {
	// Mode names the variant ("password" or "token").
	Mode() string
	isCredentials()
}

// UsernamePassword is exchanged for a short-lived access token.
type UsernamePassword struct {
	Username string
	Password string
}

func (UsernamePassword) Mode() string  { return "password" }
func (UsernamePassword) isCredentials() {}

// LogValue keeps the password out of logs.
func (c UsernamePassword) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", c.Mode()),
		slog.String("username", c.Username),
		slog.String("password", redact(c.Password)),
	)
}

// BearerToken is a caller-supplied access token. Sessions built from it
// are read-only.
type BearerToken struct {
	Token string
}

func (BearerToken) Mode() string  { return "token" }
func (BearerToken) isCredentials() {}

// LogValue keeps the token out of logs.
func (c BearerToken) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", c.Mode()),
		slog.String("token", redact(c.Token)),
	)
}

// Input holds the values given explicitly on the command line. Empty
// strings mean "not given".
type Input struct {
	Username string
	Password string
	Token    string
}

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Resolve picks the credentials for this invocation.
//
// Each field is taken from cli when non-empty, otherwise from the
// environment. A complete username/password pair wins over a token. A pair
// with only one half present is an error even when a token is available,
// because it indicates a typo rather than intent to use the token.
func Resolve(ctx context.Context, cli Input, lookup LookupFunc) (Credentials, error) {
	tracer := otel.Tracer("ultra-cli")
	_, span := tracer.Start(ctx, "credentials.Resolve")
	defer span.End()

	username := pick(cli.Username, EnvUsername, lookup)
	password := pick(cli.Password, EnvPassword, lookup)
	token := pick(cli.Token, EnvToken, lookup)

	span.SetAttributes(
		attribute.Bool("credentials.username_present", username != ""),
		attribute.Bool("credentials.password_present", password != ""),
		attribute.Bool("credentials.token_present", token != ""),
	)

	switch {
	case username != "" && password != "":
		span.SetAttributes(attribute.String("credentials.mode", "password"))
		return UsernamePassword{Username: username, Password: password}, nil
	case username != "":
		err := errkind.Newf(errkind.MissingCredentials, "resolve credentials",
			"username is set but password is missing (use --password or %s)", EnvPassword)
		span.RecordError(err)
		return nil, err
	case password != "":
		err := errkind.Newf(errkind.MissingCredentials, "resolve credentials",
			"password is set but username is missing (use --username or %s)", EnvUsername)
		span.RecordError(err)
		return nil, err
	case token != "":
		span.SetAttributes(attribute.String("credentials.mode", "token"))
		return BearerToken{Token: token}, nil
	default:
		err := errkind.Newf(errkind.MissingCredentials, "resolve credentials",
			"no credentials found: use --username/--password, --token, or set %s/%s or %s",
			EnvUsername, EnvPassword, EnvToken)
		span.RecordError(err)
		return nil, err
	}
}

func pick(cliValue, envKey string, lookup LookupFunc) string {
	if cliValue != "" {
		return cliValue
	}
	if lookup == nil {
		return ""
	}
	if v, ok := lookup(envKey); ok {
		return v
	}
	return ""
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[redacted]"
}
