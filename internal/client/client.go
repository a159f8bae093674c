// Package client is the thin HTTP client for the catalog API. It is handed
// already-resolved parameters and forwards them; it has no dialect or
// storage knowledge.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/refcask/refcask/internal/api"
	"github.com/refcask/refcask/internal/errs"
)

// Client talks to one catalog server. Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client, e.g. to change
// timeouts or transport.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New builds a client for the server at baseURL (e.g. "http://cask:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Diff starts a diff request between two references.
func (c *Client) Diff() *DiffBuilder {
	return &DiffBuilder{c: c}
}

// DiffBuilder collects the parameters of a "diff between two references"
// call and forwards them on Get.
type DiffBuilder struct {
	c        *Client
	from, to api.RefSpec
}

// FromRef sets the reference on the from side.
func (b *DiffBuilder) FromRef(ref string) *DiffBuilder {
	b.from.Ref = ref
	return b
}

// FromHashOnRef pins the from side to a hash on its reference.
func (b *DiffBuilder) FromHashOnRef(hash string) *DiffBuilder {
	b.from.Hash = hash
	return b
}

// ToRef sets the reference on the to side.
func (b *DiffBuilder) ToRef(ref string) *DiffBuilder {
	b.to.Ref = ref
	return b
}

// ToHashOnRef pins the to side to a hash on its reference.
func (b *DiffBuilder) ToHashOnRef(hash string) *DiffBuilder {
	b.to.Hash = hash
	return b
}

// Get issues the request and decodes the response.
func (b *DiffBuilder) Get(ctx context.Context) (*api.DiffResponse, error) {
	if b.from.Ref == "" || b.to.Ref == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "diff: both from and to refs are required")
	}

	spec := b.from.String() + api.DiffSpecSeparator + b.to.String()
	u := fmt.Sprintf("%s/api/v1/diffs/%s", b.c.baseURL, url.PathEscape(spec))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "build diff request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.c.httpc.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "diff request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("diff %s", spec))
	default:
		return nil, errs.New(errs.ErrKindQueryFailed,
			fmt.Sprintf("diff %s: server answered %s", spec, resp.Status))
	}

	out := &api.DiffResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "decode diff response", err)
	}
	return out, nil
}
