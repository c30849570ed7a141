package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Congxabeng103/bez-storefront/internal/admin"
	"github.com/Congxabeng103/bez-storefront/internal/form"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/orderflow"
)

func (s *Server) mountAdmin(r chi.Router) {
	c := s.admin
	mountCatalog(r, "/products", c.Products)
	mountCatalog(r, "/variants", c.Variants)
	mountCatalog(r, "/brands", c.Brands)
	mountCatalog(r, "/categories", c.Categories)
	mountCatalog(r, "/coupons", c.Coupons)
	mountCatalog(r, "/promotions", c.Promotions)
	mountCatalog(r, "/customers", c.Customers)

	r.Group(func(r chi.Router) {
		r.Use(requireRole(models.RoleAdmin))
		mountCatalog(r, "/employees", c.Employees)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", s.listOrders)
		r.Post("/", s.createOrder)
		r.Get("/transitions", s.orderTransitions)
		r.Get("/{id}", s.getOrder)
		r.Get("/{id}/actions", s.orderActions)
		r.Put("/{id}/status", s.updateOrderStatus)
	})
}

type catalogItem[T any] struct {
	Item                 *T   `json:"item"`
	CanDeletePermanently bool `json:"canDeletePermanently"`
}

// mountCatalog exposes the CRUD routes of one admin collection under pattern.
func mountCatalog[T any, In any](r chi.Router, pattern string, c *admin.Catalog[T, In]) {
	r.Route(pattern, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			page, err := c.List(r.Context(), listQuery(r))
			if err != nil {
				writeError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, page)
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in In
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			item, err := c.Create(r.Context(), in)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respondJSON(w, http.StatusCreated, item)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r, "id")
			if err != nil {
				writeError(w, r, err)
				return
			}
			item, err := c.Get(r.Context(), id)
			if err != nil {
				writeError(w, r, err)
				return
			}
			role := sessionFrom(r.Context()).Role
			respondJSON(w, http.StatusOK, catalogItem[T]{
				Item:                 item,
				CanDeletePermanently: c.CanDeletePermanently(role, item),
			})
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r, "id")
			if err != nil {
				writeError(w, r, err)
				return
			}
			var in In
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			item, err := c.Update(r.Context(), id, in)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, item)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r, "id")
			if err != nil {
				writeError(w, r, err)
				return
			}
			if err := c.Delete(r.Context(), id); err != nil {
				writeError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, nil)
		})

		r.Put("/{id}/reactivate", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r, "id")
			if err != nil {
				writeError(w, r, err)
				return
			}
			if err := c.Reactivate(r.Context(), id); err != nil {
				writeError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, nil)
		})

		r.Delete("/{id}/permanent", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r, "id")
			if err != nil {
				writeError(w, r, err)
				return
			}
			role := sessionFrom(r.Context()).Role
			if err := c.DeletePermanent(r.Context(), role, id); err != nil {
				writeError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, nil)
		})
	})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := s.admin.Orders.List(r.Context(), listQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var in models.OrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := s.admin.Orders.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

type orderView struct {
	Order   *models.Order          `json:"order"`
	Actions []orderflow.Transition `json:"actions"`
}

func (s *Server) viewOrder(order *models.Order) orderView {
	actions := s.admin.Orders.Actions(order)
	if actions == nil {
		actions = []orderflow.Transition{}
	}
	return orderView{Order: order, Actions: actions}
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := s.admin.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.viewOrder(order))
}

func (s *Server) orderActions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := s.admin.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.viewOrder(order).Actions)
}

func (s *Server) orderTransitions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, orderflow.Table())
}

type statusRequest struct {
	Status       string `json:"status"`
	TrackingCode string `json:"trackingCode"`
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(w, r, form.FieldErrors{"status": "is not a known order status"})
		return
	}

	order, err := s.admin.Orders.Transition(r.Context(), id, to, req.TrackingCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.viewOrder(order))
}
