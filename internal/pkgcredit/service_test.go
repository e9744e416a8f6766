package pkgcredit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo records what the service asked it to persist.
type stubRepo struct {
	definition *Definition
	pkg        *CustomerPackage

	createdPackage *CustomerPackage
	createdUsages  []Usage
	createdTxn     *Transaction
	usage          *Usage
	consumeErr     error
}

func (s *stubRepo) GetDefinitionByID(_ context.Context, id uuid.UUID) (*Definition, error) {
	if s.definition == nil || s.definition.ID != id {
		return nil, ErrPackageNotFound
	}
	return s.definition, nil
}

func (s *stubRepo) GetCustomerPackageByID(_ context.Context, id uuid.UUID) (*CustomerPackage, error) {
	if s.pkg == nil || s.pkg.ID != id {
		return nil, ErrCustomerPackageNotFound
	}
	return s.pkg, nil
}

func (s *stubRepo) CreateAssignment(_ context.Context, cp *CustomerPackage, usages []Usage, txn *Transaction) error {
	s.createdPackage = cp
	s.createdUsages = usages
	s.createdTxn = txn
	return nil
}

func (s *stubRepo) GetUsageByID(_ context.Context, id uuid.UUID) (*Usage, error) {
	if s.usage == nil || s.usage.ID != id {
		return nil, ErrUsageNotFound
	}
	return s.usage, nil
}

func (s *stubRepo) FindUsageForItem(_ context.Context, customerPackageID uuid.UUID, itemType string, itemID uuid.UUID) (*Usage, error) {
	if s.usage == nil {
		return nil, ErrUsageNotFound
	}
	if s.usage.CustomerPackageID != customerPackageID || s.usage.ItemType != itemType || s.usage.ItemID != itemID {
		return nil, ErrUsageNotFound
	}
	return s.usage, nil
}

func (s *stubRepo) ConsumeUsage(_ context.Context, id uuid.UUID) (*Usage, error) {
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	return s.GetUsageByID(context.Background(), id)
}

func (s *stubRepo) DeleteCustomerPackage(context.Context, uuid.UUID) error {
	return nil
}

func TestAssign_BuildsLedgerFromDefinition(t *testing.T) {
	serviceID := uuid.New()
	productID := uuid.New()
	repo := &stubRepo{
		definition: &Definition{
			ID:       uuid.New(),
			TenantID: uuid.New(),
			Name:     "Glow Up Bundle",
			Price:    300,
			Items: []Item{
				{ItemType: ItemTypeService, ItemID: serviceID, Quantity: 10},
				{ItemType: ItemTypeProduct, ItemID: productID, Quantity: 2},
			},
		},
	}
	svc := NewService(repo, nil)

	in := AssignInput{
		CustomerID:  uuid.New(),
		PackageID:   repo.definition.ID,
		TenantID:    repo.definition.TenantID,
		StaffID:     uuid.New(),
		PaymentType: "card",
	}

	cp, err := svc.Assign(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, PackageActive, cp.Status)
	assert.Equal(t, in.CustomerID, cp.CustomerID)

	require.Len(t, repo.createdUsages, 2)
	first := repo.createdUsages[0]
	assert.Equal(t, cp.ID, first.CustomerPackageID)
	assert.Equal(t, ItemTypeService, first.ItemType)
	assert.Equal(t, serviceID, first.ItemID)
	assert.Equal(t, 10, first.TotalQuantity)
	assert.Equal(t, 10, first.RemainingQuantity)
	assert.Zero(t, first.UsedQuantity)

	require.NotNil(t, repo.createdTxn)
	assert.Equal(t, TxnKindPackageSale, repo.createdTxn.Kind)
	assert.Equal(t, 300.0, repo.createdTxn.Amount)
	assert.Equal(t, cp.ID, repo.createdTxn.ReferenceID)
	assert.Equal(t, "card", repo.createdTxn.PaymentType)
}

func TestAssign_RejectsEmptyPackage(t *testing.T) {
	repo := &stubRepo{
		definition: &Definition{ID: uuid.New(), Name: "Empty", Price: 10},
	}
	svc := NewService(repo, nil)

	_, err := svc.Assign(context.Background(), AssignInput{PackageID: repo.definition.ID})
	assert.Error(t, err)
	assert.Nil(t, repo.createdPackage)
}

func TestAssign_UnknownDefinition(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	_, err := svc.Assign(context.Background(), AssignInput{PackageID: uuid.New()})
	assert.ErrorIs(t, err, ErrPackageNotFound)
}

func ownedPackage(status PackageStatus) *CustomerPackage {
	return &CustomerPackage{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		CustomerID: uuid.New(),
		Status:     status,
	}
}

func TestFindServiceUsage_ResolvesActivePackage(t *testing.T) {
	pkg := ownedPackage(PackageActive)
	serviceID := uuid.New()
	repo := &stubRepo{
		pkg: pkg,
		usage: &Usage{
			ID:                uuid.New(),
			CustomerPackageID: pkg.ID,
			ItemType:          ItemTypeService,
			ItemID:            serviceID,
			TotalQuantity:     5,
			RemainingQuantity: 5,
		},
	}
	svc := NewService(repo, nil)

	u, err := svc.FindServiceUsage(context.Background(), pkg.TenantID, pkg.CustomerID, pkg.ID, serviceID)
	require.NoError(t, err)
	assert.Equal(t, repo.usage.ID, u.ID)
}

func TestFindServiceUsage_WrongTenantReadsAsNotFound(t *testing.T) {
	pkg := ownedPackage(PackageActive)
	repo := &stubRepo{pkg: pkg}
	svc := NewService(repo, nil)

	_, err := svc.FindServiceUsage(context.Background(), uuid.New(), pkg.CustomerID, pkg.ID, uuid.New())
	assert.ErrorIs(t, err, ErrCustomerPackageNotFound)
}

func TestFindServiceUsage_WrongCustomerReadsAsNotFound(t *testing.T) {
	pkg := ownedPackage(PackageActive)
	repo := &stubRepo{pkg: pkg}
	svc := NewService(repo, nil)

	_, err := svc.FindServiceUsage(context.Background(), pkg.TenantID, uuid.New(), pkg.ID, uuid.New())
	assert.ErrorIs(t, err, ErrCustomerPackageNotFound)
}

func TestFindServiceUsage_InactivePackage(t *testing.T) {
	pkg := ownedPackage(PackageExpired)
	repo := &stubRepo{pkg: pkg}
	svc := NewService(repo, nil)

	_, err := svc.FindServiceUsage(context.Background(), pkg.TenantID, pkg.CustomerID, pkg.ID, uuid.New())
	assert.ErrorIs(t, err, ErrPackageNotActive)
}

func TestFindServiceUsage_ExpiredPackage(t *testing.T) {
	pkg := ownedPackage(PackageActive)
	expired := time.Now().Add(-24 * time.Hour)
	pkg.ExpiresAt = &expired
	repo := &stubRepo{pkg: pkg}
	svc := NewService(repo, nil)

	_, err := svc.FindServiceUsage(context.Background(), pkg.TenantID, pkg.CustomerID, pkg.ID, uuid.New())
	assert.ErrorIs(t, err, ErrPackageNotActive)
}

func TestFindServiceUsage_NoMatchingItem(t *testing.T) {
	pkg := ownedPackage(PackageActive)
	repo := &stubRepo{pkg: pkg}
	svc := NewService(repo, nil)

	_, err := svc.FindServiceUsage(context.Background(), pkg.TenantID, pkg.CustomerID, pkg.ID, uuid.New())
	assert.ErrorIs(t, err, ErrUsageNotFound)
}

func TestConsume_PassesThroughErrors(t *testing.T) {
	repo := &stubRepo{consumeErr: ErrInsufficientCredit}
	svc := NewService(repo, nil)

	_, err := svc.Consume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrInsufficientCredit)
}
