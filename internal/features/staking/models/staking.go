package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PurchaseCurrency = "USDT"
	PurchaseStatus   = "COMPLETED"
)

// Package is a staking package from the catalog.
type Package struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type PackageView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" example:"Starter"`
	Price     float64   `json:"price" example:"100"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *Package) ToView() PackageView {
	return PackageView{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.InexactFloat64(),
		CreatedAt: p.CreatedAt,
	}
}

// HistoryEntry is one user_package_history row.
type HistoryEntry struct {
	ID          string
	UserID      string
	PackageID   string
	PackageName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	CreatedAt   time.Time
}

type HistoryItem struct {
	ID          string  `json:"id"`
	Date        string  `json:"date" example:"2024-03-01T09:30:00Z"`
	Amount      float64 `json:"amount" example:"100"`
	Currency    string  `json:"currency" example:"USDT"`
	Status      string  `json:"status" example:"COMPLETED"`
	PackageName string  `json:"packageName" example:"Starter"`
}

type PurchaseResult struct {
	Balance     float64 `json:"balance"`
	PackageName string  `json:"packageName"`
}

// PackageQuery filters the admin package list. Page is 1-based.
type PackageQuery struct {
	Page int
	Size int
	Q    string
}

type PackagePage struct {
	Items []PackageView `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

type CreatePackageInput struct {
	Name  string
	Price string
}
