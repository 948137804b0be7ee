// Package ultradnstest provides an in-process fake of the UltraDNS REST API
// for tests.
package ultradnstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Route names used with Fail and Calls.
const (
	RouteToken  = "token"
	RouteZones  = "zones"
	RouteRRSets = "rrsets"
	RouteDelete = "delete"
)

// RRSet is a record set as the service stores it. Type uses the wire
// notation, e.g. "A (1)".
type RRSet struct {
	Owner string
	Type  string
	TTL   int
	RData []string
}

// Zone is a zone and its record sets.
type Zone struct {
	Name    string
	Type    string
	Status  string
	Owner   string
	Account string
	DNSSEC  string
	Records []RRSet
}

// Failure is an injected non-2xx response.
type Failure struct {
	Status     int
	RetryAfter string
	Body       string
}

// Server is a fake UltraDNS API. Zero values are usable after NewServer;
// exported fields may be changed before the first request.
type Server struct {
	*httptest.Server

	Username string
	Password string
	// TokenTTL is reported as expiresIn for issued tokens.
	TokenTTL time.Duration
	// MaxLimit caps the page size regardless of the requested limit.
	MaxLimit int
	// RepeatZoneCursor makes every zone page point at the same cursor.
	RepeatZoneCursor bool

	mu       sync.Mutex
	zones    []Zone
	tokens   map[string]bool
	issued   int
	calls    map[string]int
	failures map[string][]Failure
	queries  []url.Values
}

// NewServer starts a fake API serving zones. Call Close when done.
func NewServer(zones ...Zone) *Server {
	s := &Server{
		Username: "user",
		Password: "secret",
		TokenTTL: time.Hour,
		MaxLimit: 1000,
		zones:    zones,
		tokens:   map[string]bool{},
		calls:    map[string]int{},
		failures: map[string][]Failure{},
	}

	r := chi.NewRouter()
	r.Post("/v1/authorization/token", s.handleToken)
	r.Get("/v3/zones", s.handleZones)
	r.Get("/v1/zones/{zone}/rrsets", s.handleRRSets)
	r.Delete("/v1/zones/{zone}", s.handleDelete)

	s.Server = httptest.NewServer(r)
	return s
}

// AddToken makes token acceptable as a bearer token.
func (s *Server) AddToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
}

// RevokeTokens invalidates every token issued or added so far.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]bool{}
}

// Fail queues failures returned by the next requests to route, in order.
func (s *Server) Fail(route string, failures ...Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failures...)
}

// Calls returns how many requests route has received.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Queries returns the query strings of the collection requests received.
func (s *Server) Queries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.queries))
	copy(out, s.queries)
	return out
}

// begin counts the request and reports whether an injected failure was written.
func (s *Server) begin(route string, w http.ResponseWriter) bool {
	s.mu.Lock()
	s.calls[route]++
	var f *Failure
	if queue := s.failures[route]; len(queue) > 0 {
		f = &queue[0]
		s.failures[route] = queue[1:]
	}
	s.mu.Unlock()

	if f == nil {
		return false
	}
	if f.RetryAfter != "" {
		w.Header().Set("Retry-After", f.RetryAfter)
	}
	body := f.Body
	if body == "" {
		body = fmt.Sprintf(`[{"errorCode":%d,"errorMessage":"injected failure"}]`, f.Status)
	}
	writeRaw(w, f.Status, body)
	return true
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	ok := token != "" && s.tokens[token]
	s.mu.Unlock()
	if !ok {
		writeRaw(w, http.StatusUnauthorized, `{"errorCode":60001,"errorMessage":"invalid_grant:token not valid"}`)
	}
	return ok
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.begin(RouteToken, w) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeRaw(w, http.StatusBadRequest, `{"error":"invalid_request","error_description":"malformed form"}`)
		return
	}
	if r.PostForm.Get("grant_type") != "password" {
		writeRaw(w, http.StatusBadRequest, `{"error":"unsupported_grant_type","error_description":"grant type not supported"}`)
		return
	}
	if r.PostForm.Get("username") != s.Username || r.PostForm.Get("password") != s.Password {
		writeRaw(w, http.StatusUnauthorized, `{"errorCode":60001,"errorMessage":"invalid_grant:Invalid username & password combination."}`)
		return
	}

	s.mu.Lock()
	s.issued++
	token := fmt.Sprintf("access-%d", s.issued)
	s.tokens[token] = true
	ttl := s.TokenTTL
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"tokenType":    "Bearer",
		"accessToken":  token,
		"refreshToken": fmt.Sprintf("refresh-%d", s.issued),
		"expiresIn":    strconv.Itoa(int(ttl / time.Second)),
	})
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	if s.begin(RouteZones, w) || !s.authorized(w, r) {
		return
	}
	s.recordQuery(r)

	terms := parseQ(r.URL.Query().Get("q"))
	var matched []Zone
	s.mu.Lock()
	for _, z := range s.zones {
		if name, ok := terms["name"]; ok && !strings.Contains(strings.ToLower(z.Name), strings.ToLower(name)) {
			continue
		}
		if typ, ok := terms["zone_type"]; ok && !strings.EqualFold(z.Type, typ) {
			continue
		}
		if status, ok := terms["zone_status"]; ok && !strings.EqualFold(z.Status, status) {
			continue
		}
		matched = append(matched, z)
	}
	repeat := s.RepeatZoneCursor
	s.mu.Unlock()

	offset := 0
	if c := r.URL.Query().Get("cursor"); c != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(c, "c"))
		if err != nil || n < 0 {
			writeRaw(w, http.StatusBadRequest, `[{"errorCode":57001,"errorMessage":"invalid cursor"}]`)
			return
		}
		offset = n
	}
	end := min(offset+s.limit(r), len(matched))
	if offset > end {
		offset = end
	}

	zones := make([]map[string]any, 0, end-offset)
	for _, z := range matched[offset:end] {
		zones = append(zones, map[string]any{"properties": map[string]any{
			"name":                 z.Name,
			"accountName":          z.Account,
			"type":                 z.Type,
			"dnssecStatus":         z.DNSSEC,
			"status":               z.Status,
			"owner":                z.Owner,
			"resourceRecordCount":  len(z.Records),
			"lastModifiedDateTime": "2024-01-02T03:04:05Z",
		}})
	}

	cursorInfo := map[string]any{}
	switch {
	case repeat:
		cursorInfo["next"] = "c0"
	case end < len(matched):
		cursorInfo["next"] = "c" + strconv.Itoa(end)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"queryInfo":  map[string]any{"q": r.URL.Query().Get("q"), "limit": s.limit(r)},
		"cursorInfo": cursorInfo,
		"resultInfo": map[string]any{"totalCount": len(matched), "offset": offset, "returnedCount": end - offset},
		"zones":      zones,
	})
}

func (s *Server) handleRRSets(w http.ResponseWriter, r *http.Request) {
	if s.begin(RouteRRSets, w) || !s.authorized(w, r) {
		return
	}
	s.recordQuery(r)

	name, _ := url.PathUnescape(chi.URLParam(r, "zone"))
	zone, ok := s.zone(name)
	if !ok {
		writeRaw(w, http.StatusNotFound, `[{"errorCode":1801,"errorMessage":"Zone does not exist in the system."}]`)
		return
	}
	if len(zone.Records) == 0 {
		writeRaw(w, http.StatusNotFound, `[{"errorCode":70002,"errorMessage":"Data not found."}]`)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	end := min(offset+s.limit(r), len(zone.Records))
	if offset > end {
		offset = end
	}

	rrsets := make([]map[string]any, 0, end-offset)
	for _, rr := range zone.Records[offset:end] {
		rrsets = append(rrsets, map[string]any{
			"ownerName": rr.Owner,
			"rrtype":    rr.Type,
			"ttl":       rr.TTL,
			"rdata":     rr.RData,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"zoneName":   zone.Name,
		"rrSets":     rrsets,
		"queryInfo":  map[string]any{"q": r.URL.Query().Get("q"), "limit": s.limit(r)},
		"resultInfo": map[string]any{"totalCount": len(zone.Records), "offset": offset, "returnedCount": end - offset},
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.begin(RouteDelete, w) || !s.authorized(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordQuery(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, r.URL.Query())
}

func (s *Server) zone(name string) (Zone, bool) {
	want := strings.TrimSuffix(strings.ToLower(name), ".")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range s.zones {
		if strings.TrimSuffix(strings.ToLower(z.Name), ".") == want {
			return z, true
		}
	}
	return Zone{}, false
}

func (s *Server) limit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return limit
}

// parseQ splits "key:value key:value" search terms.
func parseQ(q string) map[string]string {
	terms := map[string]string{}
	for _, part := range strings.Fields(q) {
		if k, v, ok := strings.Cut(part, ":"); ok {
			terms[k] = v
		}
	}
	return terms
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
