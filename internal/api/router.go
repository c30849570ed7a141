// Package api is the HTTP surface of the storefront and the admin back-office.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Congxabeng103/bez-storefront/internal/address"
	"github.com/Congxabeng103/bez-storefront/internal/admin"
	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/checkout"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

// Sessions is the session and cart surface the handlers use. *session.Manager implements it.
type Sessions interface {
	Open(ctx context.Context, id string) (*models.Session, bool, error)
	Login(ctx context.Context, s *models.Session, token string) (*models.Session, error)
	Logout(ctx context.Context, s *models.Session) (*models.Session, error)
	Cart(ctx context.Context, s *models.Session) ([]models.CartLine, error)
	AddItem(ctx context.Context, s *models.Session, variantID int64, quantity int) (*models.CartLine, error)
	SetQuantity(ctx context.Context, s *models.Session, variantID int64, quantity, version int) (*models.CartLine, error)
	RemoveItem(ctx context.Context, s *models.Session, variantID int64) error
	ClearCart(ctx context.Context, s *models.Session) error
}

type AddressBook interface {
	Provinces(ctx context.Context) ([]address.Division, error)
	Districts(ctx context.Context, provinceCode int) ([]address.Division, error)
	Wards(ctx context.Context, districtCode int) ([]address.Division, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type Deps struct {
	Sessions Sessions
	Checkout *checkout.Service
	Backend  *backend.API
	Address  AddressBook
	Admin    *admin.Console
	Cookie   CookieConfig
}

type Server struct {
	sessions Sessions
	checkout *checkout.Service
	backend  *backend.API
	address  AddressBook
	admin    *admin.Console
	cookie   CookieConfig
}

func NewServer(d Deps) *Server {
	if d.Cookie.Name == "" {
		d.Cookie.Name = "sid"
	}
	return &Server{
		sessions: d.Sessions,
		checkout: d.Checkout,
		backend:  d.Backend,
		address:  d.Address,
		admin:    d.Admin,
		cookie:   d.Cookie,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.loadSession)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/logout", s.logout)
			r.Get("/me", s.me)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.getCart)
			r.Delete("/", s.clearCart)
			r.Post("/items", s.addCartItem)
			r.Put("/items/{variantID}", s.setCartQuantity)
			r.Delete("/items/{variantID}", s.removeCartItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", s.submitCheckout)
			r.Get("/quote", s.quote)
			r.Post("/coupon", s.checkCoupon)
			r.Get("/history", s.checkoutHistory)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", s.listProducts)
			r.Get("/products/{id}", s.getProduct)
			r.Get("/variants", s.listVariants)
		})

		r.Route("/address", func(r chi.Router) {
			r.Get("/provinces", s.provinces)
			r.Get("/provinces/{code}/districts", s.districts)
			r.Get("/districts/{code}/wards", s.wards)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(models.RoleAdmin, models.RoleStaff))
			s.mountAdmin(r)
		})
	})

	return r
}
