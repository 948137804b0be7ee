package ultradns

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tfullert/ultra-cli/pkg/entity"
	"github.com/tfullert/ultra-cli/pkg/errkind"
	"github.com/tfullert/ultra-cli/pkg/retry"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "A (1)", want: "A"},
		{in: "AAAA (28)", want: "AAAA"},
		{in: "cname (5)", want: "CNAME"},
		{in: "MX", want: "MX"},
		{in: "(65)", want: "HTTPS"},
		{in: "(65280)", want: "TYPE65280"},
		{in: "APEXALIAS (65282)", want: "APEXALIAS"},
		{in: "  TXT (16) ", want: "TXT"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeType(tt.in))
		})
	}
}

func TestOwnerNames(t *testing.T) {
	tests := []struct {
		owner        string
		zone         string
		wantRelative string
		wantAbsolute string
	}{
		{owner: "example.com.", zone: "example.com.", wantRelative: "@", wantAbsolute: "example.com."},
		{owner: "Example.COM.", zone: "example.com", wantRelative: "@", wantAbsolute: "Example.COM."},
		{owner: "www.example.com.", zone: "example.com.", wantRelative: "www", wantAbsolute: "www.example.com."},
		{owner: "a.b.example.com.", zone: "example.com", wantRelative: "a.b", wantAbsolute: "a.b.example.com."},
		{owner: "www", zone: "example.com.", wantRelative: "www", wantAbsolute: "www.example.com."},
		{owner: "@", zone: "example.com.", wantRelative: "@", wantAbsolute: "example.com."},
		{owner: "other.org.", zone: "example.com.", wantRelative: "other.org.", wantAbsolute: "other.org."},
		{owner: "badexample.com.", zone: "example.com.", wantRelative: "badexample.com.", wantAbsolute: "badexample.com."},
	}

	for _, tt := range tests {
		t.Run(tt.owner+"/"+tt.zone, func(t *testing.T) {
			assert.Equal(t, tt.wantRelative, RelativeOwner(tt.owner, tt.zone))
			assert.Equal(t, tt.wantAbsolute, AbsoluteOwner(tt.owner, tt.zone))
		})
	}
}

func TestZoneEntity(t *testing.T) {
	e := zoneEntity(zoneProperties{
		Name:                 "example.com.",
		AccountName:          "acct",
		Type:                 "primary",
		DNSSECStatus:         "UNSIGNED",
		Status:               "active",
		Owner:                "jdoe",
		ResourceRecordCount:  12,
		LastModifiedDateTime: "2024-01-02T03:04:05Z",
	})

	assert.Equal(t, entity.KindZone, e.Kind)
	assert.Equal(t, entity.KindZone.Fields(), e.Names())
	assert.Equal(t, []string{"example.com.", "PRIMARY", "ACTIVE", "jdoe", "acct", "12", "UNSIGNED", "2024-01-02T03:04:05Z"}, e.Values())
}

func TestNewAPIError(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     int
		retryAfter string
		body       string
		wantCode   int
		wantMsg    string
		wantRetry  time.Duration
		wantClass  retry.Class
	}{
		{name: "list body", status: 400, body: `[{"errorCode":1801,"errorMessage":"Zone does not exist"}]`, wantCode: 1801, wantMsg: "Zone does not exist", wantClass: retry.Permanent},
		{name: "object body", status: 401, body: `{"errorCode":60001,"errorMessage":"invalid_grant"}`, wantCode: 60001, wantMsg: "invalid_grant", wantClass: retry.Permanent},
		{name: "oauth body", status: 400, body: `{"error":"invalid_grant","error_description":"bad password"}`, wantMsg: "bad password", wantClass: retry.Permanent},
		{name: "oauth without description", status: 400, body: `{"error":"invalid_grant"}`, wantMsg: "invalid_grant", wantClass: retry.Permanent},
		{name: "plain text", status: 502, body: "Bad Gateway", wantMsg: "Bad Gateway", wantClass: retry.Transient},
		{name: "empty", status: 503, wantClass: retry.Transient},
		{name: "timeout", status: 408, wantClass: retry.Transient},
		{name: "throttled seconds", status: 429, retryAfter: "3", wantRetry: 3 * time.Second, wantClass: retry.Throttled},
		{name: "throttled date", status: 429, retryAfter: now.Add(90 * time.Second).Format(http.TimeFormat), wantRetry: 90 * time.Second, wantClass: retry.Throttled},
		{name: "throttled past date", status: 429, retryAfter: now.Add(-time.Minute).Format(http.TimeFormat), wantClass: retry.Throttled},
		{name: "throttled garbage", status: 429, retryAfter: "later", wantClass: retry.Throttled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}
			err := newAPIError(resp, []byte(tt.body), now)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, tt.wantRetry, err.RetryAfter())
			assert.Equal(t, tt.wantClass, err.RetryClass())
			assert.Equal(t, tt.status == http.StatusTooManyRequests, errors.Is(err, errkind.RateLimited))
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "API request failed with status 500", (&APIError{StatusCode: 500}).Error())
	assert.Equal(t, "API request failed with status 404 (code 1801): gone", (&APIError{StatusCode: 404, Code: 1801, Message: "gone"}).Error())
	assert.Equal(t, "API request failed with status 400: bad", (&APIError{StatusCode: 400, Message: "bad"}).Error())
}

func TestAPIErrorRateLimitedSurvivesWrapping(t *testing.T) {
	throttled := &APIError{StatusCode: http.StatusTooManyRequests}
	err := errkind.New(errkind.FetchFailed, "list zones", fmt.Errorf("page 1: %w", throttled))

	assert.True(t, errors.Is(err, errkind.FetchFailed))
	assert.True(t, errors.Is(err, errkind.RateLimited))
	assert.False(t, errors.Is(&APIError{StatusCode: http.StatusServiceUnavailable}, errkind.RateLimited))
	assert.False(t, errors.Is(throttled, errkind.FetchFailed))
}
