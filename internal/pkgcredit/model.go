package pkgcredit

import (
	"time"

	"github.com/google/uuid"
)

type PackageStatus string

const (
	PackageActive  PackageStatus = "active"
	PackageExpired PackageStatus = "expired"
)

// ItemTypeService is the item type consumed by appointment bookings; product
// credits use their own type but flow through the same ledger.
const (
	ItemTypeService = "service"
	ItemTypeProduct = "product"
)

// Definition is a sellable package: a priced bundle of prepaid item credits.
type Definition struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Price     float64
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Item struct {
	ItemType string
	ItemID   uuid.UUID
	Quantity int
}

// CustomerPackage is one package assignment to one customer.
type CustomerPackage struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	PackageID  uuid.UUID
	TenantID   uuid.UUID
	StaffID    uuid.UUID // who sold it
	Status     PackageStatus
	AssignedAt time.Time
	ExpiresAt  *time.Time
}

// Usage is the countable credit ledger row for one item of an assignment.
// Invariant: RemainingQuantity = TotalQuantity - UsedQuantity, never negative.
type Usage struct {
	ID                uuid.UUID
	CustomerPackageID uuid.UUID
	ItemType          string
	ItemID            uuid.UUID
	TotalQuantity     int
	UsedQuantity      int
	RemainingQuantity int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Transaction records the financial side of a package sale.
type Transaction struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CustomerID  uuid.UUID
	Kind        string // "package_sale"
	ReferenceID uuid.UUID
	Amount      float64
	PaymentType string
	CreatedAt   time.Time
}

const TxnKindPackageSale = "package_sale"
