package models

import (
	"github.com/shopspring/decimal"
)

// Catalog entities are never hard-deleted while referenced; Active=false is the soft delete.

type Product struct {
	ID           int64           `json:"id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	BrandID      *int64          `json:"brandId,omitempty"`
	BrandName    string          `json:"brandName,omitempty"`
	CategoryID   *int64          `json:"categoryId,omitempty"`
	CategoryName string          `json:"categoryName,omitempty"`
	VariantCount int             `json:"variantCount" validate:"gte=0"`
	Active       bool            `json:"active"`
}

type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty" validate:"omitempty,url"`
	BrandID     *int64          `json:"brandId,omitempty"`
	CategoryID  *int64          `json:"categoryId,omitempty"`
	Active      bool            `json:"active"`
}

type Variant struct {
	ID            int64           `json:"id" validate:"required"`
	ProductID     int64           `json:"productId" validate:"required"`
	ProductName   string          `json:"productName,omitempty"`
	SKU           string          `json:"sku" validate:"required"`
	Color         string          `json:"color,omitempty"`
	Size          string          `json:"size,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Active        bool            `json:"active"`
}

// Label is the human-readable option string, e.g. "Red / XL".
func (v Variant) Label() string {
	switch {
	case v.Color != "" && v.Size != "":
		return v.Color + " / " + v.Size
	case v.Color != "":
		return v.Color
	case v.Size != "":
		return v.Size
	default:
		return v.SKU
	}
}

type VariantInput struct {
	ProductID     int64           `json:"productId" validate:"required"`
	SKU           string          `json:"sku" validate:"required,max=64"`
	Color         string          `json:"color,omitempty"`
	Size          string          `json:"size,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	ImageURL      string          `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Active        bool            `json:"active"`
}

type Brand struct {
	ID           int64  `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	ProductCount int    `json:"productCount" validate:"gte=0"`
	Active       bool   `json:"active"`
}

type BrandInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logoUrl,omitempty" validate:"omitempty,url"`
	Active      bool   `json:"active"`
}

type Category struct {
	ID           int64  `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description,omitempty"`
	ProductCount int    `json:"productCount" validate:"gte=0"`
	Active       bool   `json:"active"`
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// Role names issued by the backend in the JWT "role" claim.
const (
	RoleAdmin    = "ADMIN"
	RoleStaff    = "STAFF"
	RoleCustomer = "CUSTOMER"
)

// User covers both customers and employees; Role tells them apart.
type User struct {
	ID        int64  `json:"id" validate:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role" validate:"required,oneof=ADMIN STAFF CUSTOMER"`
	Active    bool   `json:"active"`
}

type UserInput struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,min=9,max=15"`
	Password  string `json:"password,omitempty" validate:"omitempty,min=6"`
	Role      string `json:"role" validate:"required,oneof=ADMIN STAFF CUSTOMER"`
	Active    bool   `json:"active"`
}

type AuthToken struct {
	Token string `json:"token" validate:"required"`
	User  *User  `json:"user,omitempty"`
}
