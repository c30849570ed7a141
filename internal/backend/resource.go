package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Congxabeng103/bez-storefront/internal/models"
)

// ListQuery are the list filters every admin table sends. Page is 0-based.
type ListQuery struct {
	Page      int
	Size      int
	Keyword   string
	Active    *bool
	Sort      string
	ProductID int64
	Role      string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(max(q.Page, 0)))
	size := q.Size
	if size <= 0 {
		size = 10
	}
	v.Set("size", strconv.Itoa(size))
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.Active != nil {
		v.Set("active", strconv.FormatBool(*q.Active))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.ProductID > 0 {
		v.Set("productId", strconv.FormatInt(q.ProductID, 10))
	}
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	return v
}

// Resource is the CRUD surface shared by every /v1/{name} collection. T is what the backend
// returns, In is what the admin form submits.
type Resource[T any, In any] struct {
	c    *Client
	path string
	read authMode
}

func NewResource[T any, In any](c *Client, name string) *Resource[T, In] {
	return &Resource[T, In]{c: c, path: "/v1/" + name, read: authRequired}
}

// PublicReads lets List and Get go out without a token, for catalog browsing.
func (r *Resource[T, In]) PublicReads() *Resource[T, In] {
	r.read = authOptional
	return r
}

func (r *Resource[T, In]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

func (r *Resource[T, In]) List(ctx context.Context, q ListQuery) (*models.Page[T], error) {
	var page models.Page[T]
	if err := r.c.do(ctx, call{method: http.MethodGet, path: r.path, query: q.values(), auth: r.read}, &page); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.path, err)
	}
	return &page, nil
}

func (r *Resource[T, In]) Get(ctx context.Context, id int64) (*T, error) {
	var item T
	if err := r.c.do(ctx, call{method: http.MethodGet, path: r.itemPath(id), auth: r.read}, &item); err != nil {
		return nil, fmt.Errorf("get %s: %w", r.itemPath(id), err)
	}
	return &item, nil
}

func (r *Resource[T, In]) Create(ctx context.Context, in In) (*T, error) {
	var item T
	if err := r.c.do(ctx, call{method: http.MethodPost, path: r.path, body: in}, &item); err != nil {
		return nil, fmt.Errorf("create %s: %w", r.path, err)
	}
	return &item, nil
}

func (r *Resource[T, In]) Update(ctx context.Context, id int64, in In) (*T, error) {
	var item T
	if err := r.c.do(ctx, call{method: http.MethodPut, path: r.itemPath(id), body: in}, &item); err != nil {
		return nil, fmt.Errorf("update %s: %w", r.itemPath(id), err)
	}
	return &item, nil
}

// Delete is the soft delete: the backend sets active=false.
func (r *Resource[T, In]) Delete(ctx context.Context, id int64) error {
	if err := r.c.do(ctx, call{method: http.MethodDelete, path: r.itemPath(id)}, nil); err != nil {
		return fmt.Errorf("delete %s: %w", r.itemPath(id), err)
	}
	return nil
}

func (r *Resource[T, In]) Reactivate(ctx context.Context, id int64) error {
	path := r.itemPath(id) + "/reactivate"
	if err := r.c.do(ctx, call{method: http.MethodPut, path: path}, nil); err != nil {
		return fmt.Errorf("reactivate %s: %w", r.itemPath(id), err)
	}
	return nil
}

// DeletePermanent removes the record. The backend refuses it while the record is referenced.
func (r *Resource[T, In]) DeletePermanent(ctx context.Context, id int64) error {
	path := r.itemPath(id) + "/permanent"
	if err := r.c.do(ctx, call{method: http.MethodDelete, path: path}, nil); err != nil {
		return fmt.Errorf("delete permanently %s: %w", r.itemPath(id), err)
	}
	return nil
}
