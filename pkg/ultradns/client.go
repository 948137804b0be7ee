package ultradns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tfullert/ultra-cli/pkg/entity"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.ultradns.com"
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	tokenPath = "/v1/authorization/token"
	zonesPath = "/v3/zones"
)

// Client talks to the UltraDNS REST API. It holds no credentials; every
// call that needs authorization takes the bearer token explicitly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithClock sets the time source used to interpret Retry-After dates.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		userAgent:  "ultra-cli",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs one HTTP exchange and returns the body of a 2xx
// response. Non-2xx responses are returned as *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, form url.Values, token string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	slog.Debug("API request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", c.now().Sub(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, respBody, c.now())
	}
	return respBody, nil
}

// Authenticate exchanges a username and password for an access token using
// the password grant.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*TokenGrant, error) {
	tracer := otel.Tracer("ultra-cli")
	ctx, span := tracer.Start(ctx, "ultradns.Authenticate")
	defer span.End()

	span.SetAttributes(attribute.String("username", username))

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	respBody, err := c.doRequest(ctx, http.MethodPost, tokenPath, nil, form, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tr.AccessToken == "" {
		err := errors.New("token response did not contain an access token")
		span.RecordError(err)
		return nil, err
	}

	ttl, err := parseExpiresIn(tr)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("expires_in", ttl.String()))
	return &TokenGrant{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    ttl,
	}, nil
}

// parseExpiresIn reads the token lifetime, which the service sends either as
// a number or as a numeric string.
func parseExpiresIn(tr tokenResponse) (time.Duration, error) {
	raw := tr.ExpiresIn
	if raw == "" {
		raw = tr.ExpiresInOAuth
	}
	if raw == "" {
		return DefaultTokenTTL, nil
	}
	secs, err := strconv.ParseFloat(raw.String(), 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid expiresIn %q in token response", raw.String())
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// PageRequest describes one collection request.
type PageRequest struct {
	Kind entity.Kind
	// Zone is the zone whose records are listed. Ignored for zones.
	Zone string
	// Query holds server-side search terms, rendered as the q parameter.
	Query  map[string]string
	Cursor *entity.Cursor
	Limit  int
}

// FetchPage retrieves one page of the collection described by req.
func (c *Client) FetchPage(ctx context.Context, token string, req PageRequest) (*entity.Page, error) {
	switch req.Kind {
	case entity.KindZone:
		return c.ListZones(ctx, token, req.Query, req.Cursor, req.Limit)
	case entity.KindRecord:
		return c.ListRecords(ctx, token, req.Zone, req.Query, req.Cursor, req.Limit)
	default:
		return nil, fmt.Errorf("unsupported resource kind %q", req.Kind)
	}
}

// ListZones retrieves one page of zones visible to the token. Zones are
// cursor-paginated; a nil cursor requests the first page.
func (c *Client) ListZones(ctx context.Context, token string, query map[string]string, cursor *entity.Cursor, limit int) (*entity.Page, error) {
	tracer := otel.Tracer("ultra-cli")
	ctx, span := tracer.Start(ctx, "ultradns.ListZones")
	defer span.End()

	params := url.Values{}
	if q := encodeQuery(query); q != "" {
		params.Set("q", q)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != nil && cursor.Token != "" {
		params.Set("cursor", cursor.Token)
	}
	span.SetAttributes(
		attribute.String("q", params.Get("q")),
		attribute.String("cursor", params.Get("cursor")),
		attribute.Int("limit", limit),
	)

	respBody, err := c.doRequest(ctx, http.MethodGet, zonesPath, params, nil, token)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var resp zoneListResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal zones: %w", err)
	}

	page := &entity.Page{Entities: make([]entity.Entity, 0, len(resp.Zones))}
	for _, z := range resp.Zones {
		page.Entities = append(page.Entities, zoneEntity(z.Properties))
	}
	if resp.CursorInfo != nil && resp.CursorInfo.Next != "" {
		page.Next = &entity.Cursor{Token: resp.CursorInfo.Next}
	}

	span.SetAttributes(
		attribute.Int("returned", len(page.Entities)),
		attribute.Bool("last", page.Last()),
	)
	return page, nil
}

// ListRecords retrieves one page of resource record sets of zone. Records
// are offset-paginated; a nil cursor requests the first page.
func (c *Client) ListRecords(ctx context.Context, token, zone string, query map[string]string, cursor *entity.Cursor, limit int) (*entity.Page, error) {
	tracer := otel.Tracer("ultra-cli")
	ctx, span := tracer.Start(ctx, "ultradns.ListRecords")
	defer span.End()

	if zone == "" {
		return nil, errors.New("zone name cannot be empty")
	}

	terms := map[string]string{"kind": "RECORDS"}
	for k, v := range query {
		terms[k] = v
	}

	params := url.Values{}
	params.Set("q", encodeQuery(terms))
	offset := 0
	if cursor != nil {
		offset = cursor.Offset
	}
	params.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	span.SetAttributes(
		attribute.String("zone", zone),
		attribute.String("q", params.Get("q")),
		attribute.Int("offset", offset),
		attribute.Int("limit", limit),
	)

	path := "/v1/zones/" + url.PathEscape(zone) + "/rrsets"
	respBody, err := c.doRequest(ctx, http.MethodGet, path, params, nil, token)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound && apiErr.Code == codeDataNotFound {
			// No record matched the query.
			return &entity.Page{}, nil
		}
		span.RecordError(err)
		return nil, err
	}

	var resp rrSetListResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal rrsets: %w", err)
	}

	zoneName := resp.ZoneName
	if zoneName == "" {
		zoneName = zone
	}
	page := &entity.Page{Entities: make([]entity.Entity, 0, len(resp.RRSets))}
	for _, rr := range resp.RRSets {
		page.Entities = append(page.Entities, recordEntity(zoneName, rr))
	}
	if ri := resp.ResultInfo; ri != nil && ri.ReturnedCount > 0 {
		next := ri.Offset + ri.ReturnedCount
		if next < ri.TotalCount {
			page.Next = &entity.Cursor{Offset: next}
		}
	}

	span.SetAttributes(
		attribute.Int("returned", len(page.Entities)),
		attribute.Bool("last", page.Last()),
	)
	return page, nil
}

// encodeQuery renders search terms as "key:value" pairs separated by
// spaces, in key order so requests are reproducible.
func encodeQuery(terms map[string]string) string {
	keys := make([]string, 0, len(terms))
	for k, v := range terms {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+terms[k])
	}
	return strings.Join(parts, " ")
}
