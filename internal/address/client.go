// Package address reads Vietnamese provinces, districts and wards from provinces.open-api.vn
// for the cascading address selects of the checkout form.
package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Congxabeng103/bez-storefront/internal/logger"
)

var ErrNotFound = errors.New("administrative division not found")

// Division is a province, district or ward.
type Division struct {
	Code         int        `json:"code"`
	Name         string     `json:"name"`
	Codename     string     `json:"codename,omitempty"`
	DivisionType string     `json:"division_type,omitempty"`
	Districts    []Division `json:"districts,omitempty"`
	Wards        []Division `json:"wards,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	ttl     time.Duration
	limiter *rate.Limiter
}

type Options struct {
	CacheTTL  time.Duration
	RateLimit float64
	Burst     int
	Timeout   time.Duration
}

func New(baseURL string, cache Cache, opts Options) *Client {
	if cache == nil {
		cache = NopCache{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: opts.Timeout},
		cache:   cache,
		ttl:     opts.CacheTTL,
		limiter: rate.NewLimiter(limit, opts.Burst),
	}
}

func (c *Client) Provinces(ctx context.Context) ([]Division, error) {
	var out []Division
	if err := c.fetch(ctx, "/api/p/", "provinces", &out); err != nil {
		return nil, fmt.Errorf("provinces: %w", err)
	}
	return out, nil
}

// Districts returns the districts of a province.
func (c *Client) Districts(ctx context.Context, provinceCode int) ([]Division, error) {
	var p Division
	code := strconv.Itoa(provinceCode)
	if err := c.fetch(ctx, "/api/p/"+code+"?depth=2", "province:"+code, &p); err != nil {
		return nil, fmt.Errorf("districts of %d: %w", provinceCode, err)
	}
	return p.Districts, nil
}

// Wards returns the wards of a district.
func (c *Client) Wards(ctx context.Context, districtCode int) ([]Division, error) {
	var d Division
	code := strconv.Itoa(districtCode)
	if err := c.fetch(ctx, "/api/d/"+code+"?depth=2", "district:"+code, &d); err != nil {
		return nil, fmt.Errorf("wards of %d: %w", districtCode, err)
	}
	return d.Wards, nil
}

func (c *Client) fetch(ctx context.Context, path, key string, out any) error {
	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		logger.Warn("address cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(data, out); err == nil {
			return nil
		}
		logger.Warn("address cache entry corrupt", zap.String("key", key))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		logger.Warn("address cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}
