package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Congxabeng103/bez-storefront/internal/models"
)

type AuthService struct {
	c *Client
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *AuthService) Login(ctx context.Context, creds Credentials) (*models.AuthToken, error) {
	var tok models.AuthToken
	if err := s.c.do(ctx, call{method: http.MethodPost, path: "/v1/auth/login", body: creds, auth: authNone}, &tok); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &tok, nil
}

// Me returns the user the context's token belongs to.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.c.do(ctx, call{method: http.MethodGet, path: "/v1/users/me"}, &u); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &u, nil
}

type CouponService struct {
	*Resource[models.Coupon, models.CouponInput]
}

// FindByCode returns (nil, nil) when no coupon has code.
func (s *CouponService) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	path := "/v1/coupons/code/" + url.PathEscape(code)
	err := s.c.do(ctx, call{method: http.MethodGet, path: path, auth: authOptional}, &c)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	return &c, nil
}

func (s *CouponService) FindCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	return s.FindByCode(ctx, code)
}

type PromotionService struct {
	*Resource[models.Promotion, models.PromotionInput]
}

// Active returns the promotions the storefront applies automatically.
func (s *PromotionService) Active(ctx context.Context) ([]models.Promotion, error) {
	var promos []models.Promotion
	if err := s.c.do(ctx, call{method: http.MethodGet, path: "/v1/promotions/active", auth: authOptional}, &promos); err != nil {
		return nil, fmt.Errorf("active promotions: %w", err)
	}
	return promos, nil
}

type OrderService struct {
	*Resource[models.Order, models.OrderInput]
}

// Place submits a storefront order. Guests may check out, so the token is optional.
func (s *OrderService) Place(ctx context.Context, in models.OrderInput) (*models.Order, error) {
	var o models.Order
	if err := s.c.do(ctx, call{method: http.MethodPost, path: "/v1/orders", body: in, auth: authOptional}, &o); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	return &o, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id int64, upd models.OrderStatusUpdate) (*models.Order, error) {
	var o models.Order
	path := "/v1/orders/" + strconv.FormatInt(id, 10) + "/status"
	if err := s.c.do(ctx, call{method: http.MethodPut, path: path, body: upd}, &o); err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	return &o, nil
}

// API groups every backend resource the storefront and admin use.
type API struct {
	Auth       *AuthService
	Products   *Resource[models.Product, models.ProductInput]
	Variants   *Resource[models.Variant, models.VariantInput]
	Brands     *Resource[models.Brand, models.BrandInput]
	Categories *Resource[models.Category, models.CategoryInput]
	Coupons    *CouponService
	Promotions *PromotionService
	Orders     *OrderService
	Users      *Resource[models.User, models.UserInput]
}

func NewAPI(c *Client) *API {
	return &API{
		Auth:       &AuthService{c: c},
		Products:   NewResource[models.Product, models.ProductInput](c, "products").PublicReads(),
		Variants:   NewResource[models.Variant, models.VariantInput](c, "variants").PublicReads(),
		Brands:     NewResource[models.Brand, models.BrandInput](c, "brands").PublicReads(),
		Categories: NewResource[models.Category, models.CategoryInput](c, "categories").PublicReads(),
		Coupons:    &CouponService{NewResource[models.Coupon, models.CouponInput](c, "coupons")},
		Promotions: &PromotionService{NewResource[models.Promotion, models.PromotionInput](c, "promotions")},
		Orders:     &OrderService{NewResource[models.Order, models.OrderInput](c, "orders")},
		Users:      NewResource[models.User, models.UserInput](c, "users"),
	}
}
