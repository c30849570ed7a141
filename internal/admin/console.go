package admin

import (
	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

// Console groups the back-office operations the admin routes expose.
type Console struct {
	Orders     *Orders
	Products   *Catalog[models.Product, models.ProductInput]
	Variants   *Catalog[models.Variant, models.VariantInput]
	Brands     *Catalog[models.Brand, models.BrandInput]
	Categories *Catalog[models.Category, models.CategoryInput]
	Coupons    *Catalog[models.Coupon, models.CouponInput]
	Promotions *Catalog[models.Promotion, models.PromotionInput]
	Customers  *Catalog[models.User, models.UserInput]
	Employees  *Catalog[models.User, models.UserInput]
}

// NewConsole wires every collection to api. today decides the calendar date for the coupon and
// promotion date rules.
func NewConsole(api *backend.API, today func() models.Date) *Console {
	return &Console{
		Orders:     NewOrders(api.Orders),
		Products:   NewProducts(api.Products),
		Variants:   NewVariants(api.Variants),
		Brands:     NewBrands(api.Brands),
		Categories: NewCategories(api.Categories),
		Coupons:    NewCoupons(api.Coupons).WithToday(today),
		Promotions: NewPromotions(api.Promotions).WithToday(today),
		Customers:  NewUsers(api.Users, models.RoleCustomer),
		Employees:  NewUsers(api.Users, models.RoleStaff, models.RoleAdmin),
	}
}
