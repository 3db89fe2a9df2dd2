// Package paging implements the continuation-token pagination protocol shared by
// every Azure DevOps resource list.
package paging

import (
	"net/url"
	"strings"
)

// ContinuationHeader is the response header carrying the next page token.
const ContinuationHeader = "x-ms-continuationtoken"

// ContinuationParam is the query parameter the token is echoed back in.
const ContinuationParam = "continuationToken"

// Cursor tracks the next page of a single list.
// An empty Token with Exhausted false means the first page has not been fetched yet.
type Cursor struct {
	Token     string
	Exhausted bool
}

// IsFirst reports whether the cursor points at the first page.
func (c Cursor) IsFirst() bool {
	return c.Token == "" && !c.Exhausted
}

// Advance returns the cursor that follows a page which returned token.
func (c Cursor) Advance(token string) Cursor {
	token = strings.TrimSpace(token)
	return Cursor{Token: token, Exhausted: token == ""}
}

// BuildRequestURL returns the request URL for base with params and the cursor token.
// The token is added only when the cursor holds one. params is not modified.
func BuildRequestURL(base string, params url.Values, c Cursor) string {
	q := make(url.Values, len(params)+1)
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	if c.Token != "" {
		q.Set(ContinuationParam, c.Token)
	}

	encoded := q.Encode()
	if encoded == "" {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + encoded
}
