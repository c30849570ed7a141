package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/form"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/pricing"
)

var (
	ErrAdminOnly       = errors.New("permanent delete requires the ADMIN role")
	ErrStillReferenced = errors.New("record is still referenced; deactivate it instead")
	ErrOutOfScope      = errors.New("record is not managed by this collection")
)

// Store is the backend CRUD surface of one collection. *backend.Resource implements it.
type Store[T any, In any] interface {
	List(ctx context.Context, q backend.ListQuery) (*models.Page[T], error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, in In) (*T, error)
	Update(ctx context.Context, id int64, in In) (*T, error)
	Delete(ctx context.Context, id int64) error
	Reactivate(ctx context.Context, id int64) error
	DeletePermanent(ctx context.Context, id int64) error
}

// Catalog is the admin CRUD for one collection.
type Catalog[T any, In any] struct {
	store Store[T, In]

	// uniqueField receives the backend's 409 message.
	uniqueField string
	refCount    func(*T) int
	prepare     func(*In, models.Date) form.FieldErrors
	scope       func(*backend.ListQuery)
	today       func() models.Date

	// owns, when set, hides records outside the collection from Get and every write.
	owns       func(*T) bool
	reactivate func(*T, models.Date) form.FieldErrors
}

func newCatalog[T any, In any](s Store[T, In], uniqueField string) *Catalog[T, In] {
	return &Catalog[T, In]{
		store:       s,
		uniqueField: uniqueField,
		refCount:    func(*T) int { return 0 },
		prepare:     func(in *In, _ models.Date) form.FieldErrors { return form.Check(*in) },
		scope:       func(*backend.ListQuery) {},
		today:       func() models.Date { return models.DateOf(time.Now()) },
	}
}

// WithToday sets the clock the date rules are checked against.
func (c *Catalog[T, In]) WithToday(today func() models.Date) *Catalog[T, In] {
	c.today = today
	return c
}

func NewProducts(s Store[models.Product, models.ProductInput]) *Catalog[models.Product, models.ProductInput] {
	c := newCatalog(s, "name")
	c.refCount = func(p *models.Product) int { return p.VariantCount }
	return c
}

func NewVariants(s Store[models.Variant, models.VariantInput]) *Catalog[models.Variant, models.VariantInput] {
	return newCatalog(s, "sku")
}

func NewBrands(s Store[models.Brand, models.BrandInput]) *Catalog[models.Brand, models.BrandInput] {
	c := newCatalog(s, "name")
	c.refCount = func(b *models.Brand) int { return b.ProductCount }
	return c
}

func NewCategories(s Store[models.Category, models.CategoryInput]) *Catalog[models.Category, models.CategoryInput] {
	c := newCatalog(s, "name")
	c.refCount = func(cat *models.Category) int { return cat.ProductCount }
	return c
}

// NewUsers manages the users holding one of roles. New users default to the first role.
func NewUsers(s Store[models.User, models.UserInput], roles ...string) *Catalog[models.User, models.UserInput] {
	c := newCatalog(s, "email")
	c.scope = func(q *backend.ListQuery) {
		if !slices.Contains(roles, q.Role) {
			q.Role = strings.Join(roles, ",")
		}
	}
	c.owns = func(u *models.User) bool { return slices.Contains(roles, u.Role) }
	c.prepare = func(in *models.UserInput, _ models.Date) form.FieldErrors {
		in.Email = strings.ToLower(strings.TrimSpace(in.Email))
		if in.Role == "" && len(roles) > 0 {
			in.Role = roles[0]
		}
		fe := form.Check(*in)
		if fe == nil && !slices.Contains(roles, in.Role) {
			fe = form.FieldErrors{"role": "must be one of " + strings.Join(roles, " ")}
		}
		return fe
	}
	return c
}

func NewCoupons(s Store[models.Coupon, models.CouponInput]) *Catalog[models.Coupon, models.CouponInput] {
	c := newCatalog(s, "code")
	c.refCount = func(cp *models.Coupon) int { return cp.UsedCount }
	c.prepare = CheckCoupon
	c.reactivate = func(cp *models.Coupon, today models.Date) form.FieldErrors {
		return checkReactivation(cp.EndDate, today)
	}
	return c
}

func NewPromotions(s Store[models.Promotion, models.PromotionInput]) *Catalog[models.Promotion, models.PromotionInput] {
	c := newCatalog(s, "name")
	c.prepare = CheckPromotion
	c.reactivate = func(p *models.Promotion, today models.Date) form.FieldErrors {
		return checkReactivation(p.EndDate, today)
	}
	return c
}

func (c *Catalog[T, In]) List(ctx context.Context, q backend.ListQuery) (*models.Page[T], error) {
	c.scope(&q)
	return c.store.List(ctx, q)
}

func (c *Catalog[T, In]) Get(ctx context.Context, id int64) (*T, error) {
	item, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.owns != nil && !c.owns(item) {
		return nil, fmt.Errorf("%w: id %d", ErrOutOfScope, id)
	}
	return item, nil
}

// checkOwned fails when the collection is scoped and id falls outside it.
func (c *Catalog[T, In]) checkOwned(ctx context.Context, id int64) error {
	if c.owns == nil {
		return nil
	}
	_, err := c.Get(ctx, id)
	return err
}

func (c *Catalog[T, In]) Create(ctx context.Context, in In) (*T, error) {
	if fe := c.prepare(&in, c.today()); fe != nil {
		return nil, fe
	}
	item, err := c.store.Create(ctx, in)
	return item, c.mapConflict(err)
}

func (c *Catalog[T, In]) Update(ctx context.Context, id int64, in In) (*T, error) {
	if fe := c.prepare(&in, c.today()); fe != nil {
		return nil, fe
	}
	if err := c.checkOwned(ctx, id); err != nil {
		return nil, err
	}
	item, err := c.store.Update(ctx, id, in)
	return item, c.mapConflict(err)
}

// Delete deactivates the record.
func (c *Catalog[T, In]) Delete(ctx context.Context, id int64) error {
	if err := c.checkOwned(ctx, id); err != nil {
		return err
	}
	return c.store.Delete(ctx, id)
}

// Reactivate switches a deactivated record back on. Coupons and promotions whose end date
// has passed stay off until they are edited.
func (c *Catalog[T, In]) Reactivate(ctx context.Context, id int64) error {
	if c.owns != nil || c.reactivate != nil {
		item, err := c.Get(ctx, id)
		if err != nil {
			return err
		}
		if c.reactivate != nil {
			if fe := c.reactivate(item, c.today()); fe != nil {
				return fe
			}
		}
	}
	return c.store.Reactivate(ctx, id)
}

// CanDeletePermanently reports whether role may hard-delete item.
func (c *Catalog[T, In]) CanDeletePermanently(role string, item *T) bool {
	return role == models.RoleAdmin && c.refCount(item) == 0
}

// DeletePermanent removes the record for good. Only an ADMIN may, and only while nothing
// references it.
func (c *Catalog[T, In]) DeletePermanent(ctx context.Context, role string, id int64) error {
	if role != models.RoleAdmin {
		return ErrAdminOnly
	}
	item, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.refCount(item) > 0 {
		return ErrStillReferenced
	}

	err = c.store.DeletePermanent(ctx, id)
	if backend.IsConflict(err) {
		return fmt.Errorf("%w: %s", ErrStillReferenced, backend.Message(err, "referenced by other records"))
	}
	return err
}

func (c *Catalog[T, In]) mapConflict(err error) error {
	if err == nil || c.uniqueField == "" || !backend.IsConflict(err) {
		return err
	}
	return form.FieldErrors{c.uniqueField: backend.Message(err, "is already taken")}
}

// CheckCoupon normalizes in.Code and validates the coupon form.
func CheckCoupon(in *models.CouponInput, today models.Date) form.FieldErrors {
	in.Code = pricing.NormalizeCode(in.Code)
	fe := form.Check(*in)
	if fe == nil {
		fe = form.FieldErrors{}
	}
	checkDiscount(fe, discountFields{
		value:     in.DiscountValue,
		maxAmount: in.MaxDiscountAmount,
		minOrder:  in.MinOrderAmount,
		start:     in.StartDate,
		end:       in.EndDate,
		active:    in.Active,
	}, today)
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// CheckPromotion validates the promotion form.
func CheckPromotion(in *models.PromotionInput, today models.Date) form.FieldErrors {
	fe := form.Check(*in)
	if fe == nil {
		fe = form.FieldErrors{}
	}
	checkDiscount(fe, discountFields{
		value:     in.DiscountValue,
		maxAmount: in.MaxDiscountAmount,
		minOrder:  in.MinOrderAmount,
		start:     in.StartDate,
		end:       in.EndDate,
		active:    in.Active,
	}, today)
	if len(in.ProductIDs) == 0 {
		fe.Add("productIds", "select at least one product")
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}
