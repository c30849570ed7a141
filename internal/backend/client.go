// Package backend is the client of the REST backend that owns authentication, persistence and
// business validation. Every response is an envelope; data is validated before it is returned.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/logger"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

const maxBodySize = 10 << 20

type tokenKey struct{}

// WithToken returns a context carrying the bearer token used for backend calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type authMode int

const (
	authRequired authMode = iota
	authOptional
	authNone
)

type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   authMode
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	token := TokenFrom(ctx)
	if cl.auth == authRequired && token == "" {
		return ErrNoToken
	}

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", cl.method, cl.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" && cl.auth != authNone {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: KindGeneric, Method: cl.method, Path: cl.path, Message: "backend unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &APIError{Kind: KindGeneric, Status: resp.StatusCode, Method: cl.method, Path: cl.path, Message: "read response", Err: err}
	}

	logger.Debug("backend call",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env models.Envelope[json.RawMessage]
	envErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if envErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Method: cl.method, Path: cl.path, Message: msg}
	}
	if envErr != nil {
		return &DecodeError{Path: cl.path, Err: envErr}
	}
	if env.Status == models.StatusError {
		return &APIError{Kind: KindGeneric, Status: resp.StatusCode, Method: cl.method, Path: cl.path, Message: env.Message}
	}
	if env.Status != models.StatusSuccess {
		return &DecodeError{Path: cl.path, Err: fmt.Errorf("unknown envelope status %q", env.Status)}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return &DecodeError{Path: cl.path, Err: errors.New("missing data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &DecodeError{Path: cl.path, Err: err}
	}
	if err := c.check(out); err != nil {
		return &DecodeError{Path: cl.path, Err: err}
	}
	return nil
}

// check validates decoded structs and the structs inside decoded slices.
func (c *Client) check(v any) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Struct:
		return c.validate.Struct(rv.Interface())
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			if err := c.check(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	}
	return nil
}
