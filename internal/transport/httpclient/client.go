// Package httpclient implements store.Backend over the HTTP surface
// internal/transport/http exposes, so the wallet server and app backend
// can address an upstream node process by URL (CREDENTIAL_NODE_URL,
// PROXY_NODE_URL, DATA_NODE_URL) instead of sharing an in-process
// store.Backend value. It forwards every call to one fixed upstream
// base URL, strips nothing sensitive on the way out since this is an
// internal service-to-service hop, and translates transport failures
// into the same error shape a direct in-process call would produce.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/uri"
)

// Client addresses a single upstream node's HTTP API and implements
// store.Backend, so it can be handed to wallet.New or appbackend.New
// exactly like a local memstore/sqlstore/docstore value.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client targeting baseURL (no trailing slash required).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}

// errorEnvelope mirrors httputil.WriteError's {error, code} shape.
type errorEnvelope struct {
	Error string      `json:"error"`
	Code  apierr.Code `json:"code"`
}

func errorFromResponse(resp *http.Response) error {
	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Code == "" {
		return apierr.New(apierr.BackendUnavailable, "upstream returned status "+resp.Status)
	}
	return apierr.New(env.Code, env.Error)
}

func pathFor(rawURI string) (string, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		return url.PathEscape(u.Protocol) + "/" + url.PathEscape(u.Domain), nil
	}
	return url.PathEscape(u.Protocol) + "/" + url.PathEscape(u.Domain) + "/" + u.Path, nil
}

// Receive implements store.Backend by posting the {tx: [uri, value]}
// envelope handleReceive expects, rather than handleWrite's
// per-protocol route — Receive's raw-URI signature has no protocol/
// domain split to route on.
func (c *Client) Receive(ctx context.Context, rawURI string, value interface{}) store.ReceiveResult {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/receive", map[string]interface{}{
		"tx": []interface{}{rawURI, value},
	})
	if err != nil {
		return store.ReceiveResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return store.ReceiveResult{Err: errorFromResponse(resp)}
	}
	var out struct {
		Accepted bool          `json:"accepted"`
		Record   *store.Record `json:"record"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return store.ReceiveResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	return store.ReceiveResult{Accepted: out.Accepted, Record: out.Record}
}

func (c *Client) Read(ctx context.Context, rawURI string) store.ReadResult {
	p, err := pathFor(rawURI)
	if err != nil {
		return store.ReadResult{Err: apierr.Wrap(apierr.InvalidURI, err)}
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/read/"+p, nil)
	if err != nil {
		return store.ReadResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return store.ReadResult{Err: errorFromResponse(resp)}
	}
	var rec store.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return store.ReadResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	return store.ReadResult{Success: true, Record: &rec}
}

// ReadMulti has no dedicated route in internal/transport/http; it is
// implemented as one independent Read call per URI (at most
// MaxReadMultiURIs), the same fan-out memstore's in-process ReadMulti
// performs, just over the wire instead of a function call.
func (c *Client) ReadMulti(ctx context.Context, uris []string) ([]store.MultiReadResult, error) {
	if len(uris) > store.MaxReadMultiURIs {
		return nil, apierr.New(apierr.ValidationFailed, "too many uris in ReadMulti request")
	}
	results := make([]store.MultiReadResult, 0, len(uris))
	for _, u := range uris {
		results = append(results, store.MultiReadResult{URI: u, ReadResult: c.Read(ctx, u)})
	}
	return results, nil
}

func (c *Client) List(ctx context.Context, prefix string, opts store.ListOptions) store.ListResult {
	p, err := pathFor(prefix)
	if err != nil {
		return store.ListResult{Err: apierr.Wrap(apierr.InvalidURI, err)}
	}
	q := url.Values{}
	if opts.Pattern != "" {
		q.Set("pattern", opts.Pattern)
	}
	if opts.SortBy != "" {
		q.Set("sortBy", string(opts.SortBy))
	}
	if opts.SortOrder != "" {
		q.Set("sortOrder", string(opts.SortOrder))
	}
	if opts.Page != 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.LimitSet {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/v1/list/" + p
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return store.ListResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return store.ListResult{Err: errorFromResponse(resp)}
	}
	var out struct {
		Data       []store.Entry    `json:"data"`
		Pagination store.Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return store.ListResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	return store.ListResult{Data: out.Data, Pagination: out.Pagination}
}

func (c *Client) Delete(ctx context.Context, rawURI string) store.DeleteResult {
	p, err := pathFor(rawURI)
	if err != nil {
		return store.DeleteResult{Err: apierr.Wrap(apierr.InvalidURI, err)}
	}
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/delete/"+p, nil)
	if err != nil {
		return store.DeleteResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return store.DeleteResult{Err: errorFromResponse(resp)}
	}
	return store.DeleteResult{Success: true}
}

func (c *Client) Health(ctx context.Context) store.HealthStatus {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return store.HealthStatus{Status: "unavailable", Message: err.Error()}
	}
	defer resp.Body.Close()
	var status store.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return store.HealthStatus{Status: "unavailable", Message: err.Error()}
	}
	return status
}

func (c *Client) GetSchema() []string {
	resp, err := c.do(context.Background(), http.MethodGet, "/api/v1/schema", nil)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	var out struct {
		ProgramKeys []string `json:"programKeys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	return out.ProgramKeys
}

// Cleanup is a no-op: the upstream node owns its own cleanup cycle.
func (c *Client) Cleanup(ctx context.Context) {}
