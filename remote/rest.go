package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ferrors "github.com/vinayprograms/finserve/errors"
)

// RESTConfig configures a PostgREST-style source.
type RESTConfig struct {
	// BaseURL is the REST root, e.g. "https://project.supabase.co/rest/v1".
	BaseURL string

	// APIKey is sent as both the apikey header and a bearer token.
	APIKey string

	// Timeout bounds each request when the context carries no deadline.
	// Default: 10s
	Timeout time.Duration

	// Client overrides the HTTP client.
	Client *http.Client
}

// RESTSource talks to a PostgREST endpoint:
//
//	GET    /<resource>?select=*&order=created_at.desc
//	GET    /<resource>?select=*&id=eq.<id>
//	POST   /<resource>               (Prefer: return=representation)
//	PATCH  /<resource>?id=eq.<id>
//	DELETE /<resource>?id=eq.<id>
type RESTSource struct {
	base    *url.URL
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// NewRESTSource validates cfg and returns a source.
func NewRESTSource(cfg RESTConfig) (*RESTSource, error) {
	if cfg.BaseURL == "" {
		return nil, ferrors.InvalidInput("rest source", "base URL required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, ferrors.InvalidInput("rest source", err.Error())
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &RESTSource{base: base, apiKey: cfg.APIKey, timeout: cfg.Timeout, client: client}, nil
}

func (s *RESTSource) endpoint(resource string, query url.Values) string {
	u := *s.base
	u.Path = u.Path + "/" + url.PathEscape(resource)
	u.RawQuery = query.Encode()
	return u.String()
}

func eqID(id string) url.Values {
	return url.Values{IDField: []string{"eq." + id}}
}

func (s *RESTSource) do(ctx context.Context, method, resource string, query url.Values, body any, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return ferrors.Wrap(err, "encode "+resource)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint(resource, query), reader)
	if err != nil {
		return ferrors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ferrors.Wrap(ctx.Err(), method+" "+resource, ferrors.WithResource(resource))
		}
		return ferrors.WrapWithCode(err, ferrors.ErrCodeUnavailable, method+" "+resource,
			ferrors.WithResource(resource))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return ferrors.WrapWithCode(err, ferrors.ErrCodeUnavailable, "read "+resource,
			ferrors.WithResource(resource))
	}

	if resp.StatusCode >= 300 {
		return statusError(resource, resp.StatusCode, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return ferrors.WrapWithCode(err, ferrors.ErrCodeRemoteQuery, "decode "+resource,
			ferrors.WithResource(resource))
	}
	return nil
}

func statusError(resource string, status int, payload []byte) error {
	code := ferrors.ErrCodeRemoteQuery
	switch {
	case status == http.StatusUnauthorized:
		code = ferrors.ErrCodeUnauthorized
	case status == http.StatusForbidden:
		code = ferrors.ErrCodeForbidden
	case status == http.StatusNotFound:
		code = ferrors.ErrCodeNotFound
	case status == http.StatusConflict:
		code = ferrors.ErrCodeConflict
	case status == http.StatusTooManyRequests:
		code = ferrors.ErrCodeQuotaExceeded
	case status >= 500:
		code = ferrors.ErrCodeUnavailable
	}
	msg := strings.TrimSpace(string(payload))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return ferrors.New(code, fmt.Sprintf("%s: status %d: %s", resource, status, msg),
		ferrors.WithResource(resource),
		ferrors.WithMetadata("status", fmt.Sprint(status)))
}

func (s *RESTSource) SelectAll(ctx context.Context, resource string) ([]Record, error) {
	var rows []Record
	q := url.Values{"select": {"*"}, "order": {CreatedAt + ".desc"}}
	if err := s.do(ctx, http.MethodGet, resource, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RESTSource) SelectOne(ctx context.Context, resource, id string) (Record, error) {
	var rows []Record
	q := eqID(id)
	q.Set("select", "*")
	if err := s.do(ctx, http.MethodGet, resource, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *RESTSource) Insert(ctx context.Context, resource string, rec Record) (Record, error) {
	var rows []Record
	if err := s.do(ctx, http.MethodPost, resource, nil, rec, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *RESTSource) Update(ctx context.Context, resource, id string, partial Record) error {
	return s.do(ctx, http.MethodPatch, resource, eqID(id), partial, nil)
}

func (s *RESTSource) Delete(ctx context.Context, resource, id string) error {
	return s.do(ctx, http.MethodDelete, resource, eqID(id), nil, nil)
}
