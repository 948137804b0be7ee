package ultradns

import (
	"encoding/json"
	"time"
)

// DefaultTokenTTL is assumed when the token endpoint omits expiresIn.
const DefaultTokenTTL = time.Hour

// codeDataNotFound is returned with a 404 when an rrsets query matches nothing.
const codeDataNotFound = 70002

// TokenGrant is the result of a successful password grant.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type tokenResponse struct {
	TokenType    string      `json:"tokenType"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    json.Number `json:"expiresIn"`
	// Some deployments use the OAuth spelling.
	ExpiresInOAuth json.Number `json:"expires_in"`
}

type cursorInfo struct {
	First    string `json:"first,omitempty"`
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
	Last     string `json:"last,omitempty"`
}

type resultInfo struct {
	TotalCount    int `json:"totalCount"`
	Offset        int `json:"offset"`
	ReturnedCount int `json:"returnedCount"`
}

type queryInfo struct {
	Q       string `json:"q,omitempty"`
	Sort    string `json:"sort,omitempty"`
	Reverse bool   `json:"reverse,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type zoneListResponse struct {
	QueryInfo  *queryInfo  `json:"queryInfo,omitempty"`
	CursorInfo *cursorInfo `json:"cursorInfo,omitempty"`
	ResultInfo *resultInfo `json:"resultInfo,omitempty"`
	Zones      []zoneWire  `json:"zones"`
}

type zoneWire struct {
	Properties zoneProperties `json:"properties"`
}

type zoneProperties struct {
	Name                 string `json:"name"`
	AccountName          string `json:"accountName"`
	Type                 string `json:"type"`
	DNSSECStatus         string `json:"dnssecStatus"`
	Status               string `json:"status"`
	Owner                string `json:"owner"`
	ResourceRecordCount  int    `json:"resourceRecordCount"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
}

type rrSetListResponse struct {
	ZoneName   string      `json:"zoneName"`
	RRSets     []rrSetWire `json:"rrSets"`
	QueryInfo  *queryInfo  `json:"queryInfo,omitempty"`
	ResultInfo *resultInfo `json:"resultInfo,omitempty"`
}

type rrSetWire struct {
	OwnerName string   `json:"ownerName"`
	RRType    string   `json:"rrtype"`
	TTL       int      `json:"ttl"`
	RData     []string `json:"rdata"`
}
