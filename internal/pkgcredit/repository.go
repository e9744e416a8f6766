package pkgcredit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPackageNotFound         = errors.New("package not found")
	ErrCustomerPackageNotFound = errors.New("customer package not found")
	ErrUsageNotFound           = errors.New("package usage not found")
	ErrPackageAlreadyAssigned  = errors.New("package already assigned to customer")
	ErrInsufficientCredit      = errors.New("insufficient remaining package credit")
)

// Repository contains all DB interactions needed by the credit ledger.
type Repository interface {
	GetDefinitionByID(ctx context.Context, id uuid.UUID) (*Definition, error)
	GetCustomerPackageByID(ctx context.Context, id uuid.UUID) (*CustomerPackage, error)

	// CreateAssignment inserts the customer package, one usage row per item
	// and the sale transaction as one atomic unit.
	CreateAssignment(ctx context.Context, cp *CustomerPackage, usages []Usage, txn *Transaction) error

	GetUsageByID(ctx context.Context, id uuid.UUID) (*Usage, error)
	FindUsageForItem(ctx context.Context, customerPackageID uuid.UUID, itemType string, itemID uuid.UUID) (*Usage, error)

	// ConsumeUsage atomically decrements one credit; ErrInsufficientCredit
	// when nothing remains, ErrUsageNotFound when the row does not exist.
	ConsumeUsage(ctx context.Context, usageID uuid.UUID) (*Usage, error)

	// DeleteCustomerPackage removes the assignment and all its usage rows
	// as one unit.
	DeleteCustomerPackage(ctx context.Context, id uuid.UUID) error
}
