package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Congxabeng103/bez-storefront/internal/address"
	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/checkout"
	"github.com/Congxabeng103/bez-storefront/internal/form"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/pricing"
)

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, form.FieldErrors{name: "must be a positive number"}
	}
	return id, nil
}

func listQuery(r *http.Request) backend.ListQuery {
	v := r.URL.Query()
	q := backend.ListQuery{
		Keyword: strings.TrimSpace(v.Get("keyword")),
		Sort:    v.Get("sort"),
		Role:    v.Get("role"),
	}
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.Size, _ = strconv.Atoi(v.Get("size"))
	if q.Size > 100 {
		q.Size = 100
	}
	q.ProductID, _ = strconv.ParseInt(v.Get("productId"), 10, 64)
	if active, err := strconv.ParseBool(v.Get("active")); err == nil {
		q.Active = &active
	}
	return q
}

type authView struct {
	Session *models.Session `json:"session"`
	User    *models.User    `json:"user,omitempty"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, r, err)
		return
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if fe := form.Check(creds); fe != nil {
		writeError(w, r, fe)
		return
	}

	tok, err := s.backend.Auth.Login(r.Context(), creds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.sessions.Login(r.Context(), sessionFrom(r.Context()), tok.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.setCookie(w, sess)
	respondJSON(w, http.StatusOK, authView{Session: sess, User: tok.User})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Logout(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, authView{Session: sess})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !sess.Authenticated() {
		respondJSON(w, http.StatusOK, authView{Session: sess})
		return
	}
	user, err := s.backend.Auth.Me(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, authView{Session: sess, User: user})
}

type cartView struct {
	Lines []models.CartLine `json:"lines"`
	Quote *pricing.Quote    `json:"quote"`
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	q, lines, err := s.checkout.Quote(r.Context(), sessionFrom(r.Context()), r.URL.Query().Get("coupon"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	respondJSON(w, http.StatusOK, cartView{Lines: lines, Quote: q})
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.ClearCart(r.Context(), sessionFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

type addItemRequest struct {
	VariantID int64 `json:"variantId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if fe := form.Check(req); fe != nil {
		writeError(w, r, fe)
		return
	}

	line, err := s.sessions.AddItem(r.Context(), sessionFrom(r.Context()), req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, line)
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
	Version  int `json:"version"`
}

func (s *Server) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	variantID, err := pathID(r, "variantID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if fe := form.Check(req); fe != nil {
		writeError(w, r, fe)
		return
	}

	line, err := s.sessions.SetQuantity(r.Context(), sessionFrom(r.Context()), variantID, req.Quantity, req.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, line)
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	variantID, err := pathID(r, "variantID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.sessions.RemoveItem(r.Context(), sessionFrom(r.Context()), variantID); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	q, _, err := s.checkout.Quote(r.Context(), sessionFrom(r.Context()), r.URL.Query().Get("coupon"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

type couponRequest struct {
	Code string `json:"code" validate:"required"`
}

func (s *Server) checkCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if fe := form.Check(req); fe != nil {
		writeError(w, r, fe)
		return
	}

	applied, err := s.checkout.CheckCoupon(r.Context(), sessionFrom(r.Context()), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, applied)
}

func (s *Server) checkoutHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, err := s.checkout.History(r.Context(), sessionFrom(r.Context()), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) submitCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.checkout.Submit(r.Context(), sessionFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	active := true
	q.Active = &active

	page, err := s.backend.Products.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.backend.Products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !p.Active {
		respondError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) listVariants(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	if q.ProductID <= 0 {
		writeError(w, r, form.FieldErrors{"productId": "is required"})
		return
	}
	active := true
	q.Active = &active

	page, err := s.backend.Variants.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) provinces(w http.ResponseWriter, r *http.Request) {
	list, err := s.address.Provinces(r.Context())
	respondDivisions(w, r, list, err)
}

func (s *Server) districts(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, address.ErrNotFound)
		return
	}
	list, err := s.address.Districts(r.Context(), code)
	respondDivisions(w, r, list, err)
}

func (s *Server) wards(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, address.ErrNotFound)
		return
	}
	list, err := s.address.Wards(r.Context(), code)
	respondDivisions(w, r, list, err)
}

func respondDivisions(w http.ResponseWriter, r *http.Request, list []address.Division, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []address.Division{}
	}
	respondJSON(w, http.StatusOK, list)
}
