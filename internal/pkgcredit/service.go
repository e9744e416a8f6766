package pkgcredit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookwell/scheduling/internal/observability/metrics"
)

var ErrPackageNotActive = errors.New("customer package is not active")

type Service struct {
	repo    Repository
	metrics *metrics.SchedulingMetrics
}

func NewService(repo Repository, m *metrics.SchedulingMetrics) *Service {
	return &Service{repo: repo, metrics: m}
}

type AssignInput struct {
	CustomerID  uuid.UUID
	PackageID   uuid.UUID
	TenantID    uuid.UUID
	StaffID     uuid.UUID
	PaymentType string
	ExpiresAt   *time.Time
}

// Assign sells a package to a customer: one customer_packages row, one usage
// row per package item and the sale transaction, all-or-nothing.
func (s *Service) Assign(ctx context.Context, in AssignInput) (*CustomerPackage, error) {
	def, err := s.repo.GetDefinitionByID(ctx, in.PackageID)
	if err != nil {
		return nil, err
	}
	if len(def.Items) == 0 {
		return nil, fmt.Errorf("package %s has no items", def.ID)
	}

	cp := &CustomerPackage{
		ID:         uuid.New(),
		CustomerID: in.CustomerID,
		PackageID:  in.PackageID,
		TenantID:   in.TenantID,
		StaffID:    in.StaffID,
		Status:     PackageActive,
		AssignedAt: time.Now(),
		ExpiresAt:  in.ExpiresAt,
	}

	usages := make([]Usage, 0, len(def.Items))
	for _, it := range def.Items {
		usages = append(usages, Usage{
			ID:                uuid.New(),
			CustomerPackageID: cp.ID,
			ItemType:          it.ItemType,
			ItemID:            it.ItemID,
			TotalQuantity:     it.Quantity,
			UsedQuantity:      0,
			RemainingQuantity: it.Quantity,
		})
	}

	txn := &Transaction{
		ID:          uuid.New(),
		TenantID:    in.TenantID,
		CustomerID:  in.CustomerID,
		Kind:        TxnKindPackageSale,
		ReferenceID: cp.ID,
		Amount:      def.Price,
		PaymentType: in.PaymentType,
	}

	if err := s.repo.CreateAssignment(ctx, cp, usages, txn); err != nil {
		return nil, err
	}

	return cp, nil
}

// Consume decrements one credit from a usage row. Exposed standalone so the
// ledger can be exercised without going through a booking.
func (s *Service) Consume(ctx context.Context, usageID uuid.UUID) (*Usage, error) {
	u, err := s.repo.ConsumeUsage(ctx, usageID)
	if err != nil {
		s.metrics.ObserveCreditConsumption("failed")
		return nil, err
	}
	s.metrics.ObserveCreditConsumption("ok")
	return u, nil
}

// FindServiceUsage resolves the usage row a booking for serviceID would draw
// from. The assignment must belong to the booking's tenant and customer; a
// foreign package reads as not found so nothing leaks across tenants. The
// caller performs the actual decrement inside its own transaction.
func (s *Service) FindServiceUsage(ctx context.Context, tenantID, customerID, customerPackageID, serviceID uuid.UUID) (*Usage, error) {
	cp, err := s.repo.GetCustomerPackageByID(ctx, customerPackageID)
	if err != nil {
		return nil, err
	}
	if cp.TenantID != tenantID || cp.CustomerID != customerID {
		return nil, ErrCustomerPackageNotFound
	}
	if cp.Status != PackageActive {
		return nil, ErrPackageNotActive
	}
	if cp.ExpiresAt != nil && cp.ExpiresAt.Before(time.Now()) {
		return nil, ErrPackageNotActive
	}

	return s.repo.FindUsageForItem(ctx, customerPackageID, ItemTypeService, serviceID)
}

// Remove deletes an assignment and its usage rows as one unit. Partially
// consumed credits are not reconciled.
func (s *Service) Remove(ctx context.Context, customerPackageID uuid.UUID) error {
	return s.repo.DeleteCustomerPackage(ctx, customerPackageID)
}
