package paging

import (
	"net/url"
	"testing"
)

func TestBuildRequestURL(t *testing.T) {
	params := url.Values{
		"api-version": {"7.1"},
		"$top":        {"15"},
	}

	tests := []struct {
		name   string
		base   string
		params url.Values
		cursor Cursor
		want   string
	}{
		{
			name:   "first page has no token",
			base:   "https://dev.azure.com/org/proj/_apis/pipelines",
			params: params,
			cursor: Cursor{},
			want:   "https://dev.azure.com/org/proj/_apis/pipelines?%24top=15&api-version=7.1",
		},
		{
			name:   "token appended",
			base:   "https://dev.azure.com/org/proj/_apis/pipelines",
			params: params,
			cursor: Cursor{Token: "abc"},
			want:   "https://dev.azure.com/org/proj/_apis/pipelines?%24top=15&api-version=7.1&continuationToken=abc",
		},
		{
			name:   "token is escaped",
			base:   "https://dev.azure.com/org/_apis/projects",
			params: url.Values{"api-version": {"7.1"}},
			cursor: Cursor{Token: "a b&c"},
			want:   "https://dev.azure.com/org/_apis/projects?api-version=7.1&continuationToken=a+b%26c",
		},
		{
			name:   "base with existing query",
			base:   "https://dev.azure.com/org/proj/_apis/git/repositories/r/refs?filter=heads/",
			params: url.Values{"api-version": {"7.1"}},
			cursor: Cursor{},
			want:   "https://dev.azure.com/org/proj/_apis/git/repositories/r/refs?filter=heads/&api-version=7.1",
		},
		{
			name:   "no params no token",
			base:   "https://example.com/x",
			cursor: Cursor{},
			want:   "https://example.com/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRequestURL(tt.base, tt.params, tt.cursor)
			if got != tt.want {
				t.Errorf("BuildRequestURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildRequestURL_DoesNotMutateParams(t *testing.T) {
	params := url.Values{"api-version": {"7.1"}}
	BuildRequestURL("https://example.com", params, Cursor{Token: "tok"})

	if _, ok := params[ContinuationParam]; ok {
		t.Error("BuildRequestURL() added the token to the caller's params")
	}
}

func TestCursor_Advance(t *testing.T) {
	c := Cursor{}
	if !c.IsFirst() {
		t.Error("zero Cursor should be the first page")
	}

	c = c.Advance("abc")
	if c.Exhausted || c.Token != "abc" {
		t.Errorf("Advance(abc) = %+v, want token abc not exhausted", c)
	}

	c = c.Advance("")
	if !c.Exhausted {
		t.Errorf("Advance(\"\") = %+v, want exhausted", c)
	}
	if c.IsFirst() {
		t.Error("exhausted cursor must not report first page")
	}
}
