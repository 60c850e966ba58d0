package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/repository"
	"github.com/noah-isme/waste-mgmt-api/pkg/database"
)

type districtStore interface {
	FindByID(ctx context.Context, id string) (*models.District, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	List(ctx context.Context, filter models.DistrictFilter) ([]models.District, int, error)
	Create(ctx context.Context, district *models.District) error
	Update(ctx context.Context, district *models.District) error
	Delete(ctx context.Context, id string) error
}

type driverStore interface {
	FindByID(ctx context.Context, id string) (*models.Driver, error)
	FindByUserID(ctx context.Context, userID string) (*models.Driver, error)
	ExistsByVehicle(ctx context.Context, vehicleNumber, excludeID string) (bool, error)
	List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, int, error)
	Create(ctx context.Context, driver *models.Driver) error
	Update(ctx context.Context, driver *models.Driver) error
	Delete(ctx context.Context, id string) error
}

type categoryStore interface {
	FindByID(ctx context.Context, id string) (*models.WasteCategory, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, filter models.WasteCategoryFilter) ([]models.WasteCategory, error)
	Create(ctx context.Context, category *models.WasteCategory) error
	Update(ctx context.Context, category *models.WasteCategory) error
	Delete(ctx context.Context, id string) error
}

type wasteRequestStore interface {
	FindByID(ctx context.Context, id string) (*models.WasteRequest, error)
	List(ctx context.Context, filter models.WasteRequestFilter) ([]models.WasteRequest, int, error)
	CountByCategory(ctx context.Context, categoryID string) (int, error)
	Create(ctx context.Context, req *models.WasteRequest) error
	Update(ctx context.Context, req *models.WasteRequest) error
	Delete(ctx context.Context, id string) error
}

type paymentStore interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByRequestID(ctx context.Context, requestID string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
}

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type relationshipStore interface {
	AttachDistrictDriver(ctx context.Context, districtID, driverID string) error
	DetachDistrictDriver(ctx context.Context, districtID, driverID string) error
	AttachDistrictRequest(ctx context.Context, districtID, requestID string) error
	DetachDistrictRequest(ctx context.Context, districtID, requestID string) error
	AttachDriverRequest(ctx context.Context, driverID, requestID string) error
	DetachDriverRequest(ctx context.Context, driverID, requestID string) error
	DistrictDriverIDs(ctx context.Context, districtID string) ([]string, error)
	DistrictRequestIDs(ctx context.Context, districtID string) ([]string, error)
	DriverRequestIDs(ctx context.Context, driverID string) ([]string, error)
}

type outboxStore interface {
	Add(ctx context.Context, event *models.OutboxEvent) error
}

// Stores bundles the repositories a lifecycle operation touches, all bound to the same executor.
type Stores struct {
	Districts  districtStore
	Drivers    driverStore
	Categories categoryStore
	Requests   wasteRequestStore
	Payments   paymentStore
	Users      userStore
	Relations  relationshipStore
	Outbox     outboxStore
}

// UnitOfWork runs multi-step mutations atomically.
type UnitOfWork interface {
	// Stores returns repositories bound to the pool for reads outside a transaction.
	Stores() Stores
	// Do runs fn inside one transaction; any error rolls back every write made through the given Stores.
	Do(ctx context.Context, fn func(Stores) error) error
}

// SQLUnitOfWork implements UnitOfWork on PostgreSQL transactions.
type SQLUnitOfWork struct {
	db      *sqlx.DB
	metrics *MetricsService
}

// NewSQLUnitOfWork constructs a unit of work over the connection pool.
func NewSQLUnitOfWork(db *sqlx.DB, metrics *MetricsService) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db, metrics: metrics}
}

// Stores returns pool-bound repositories.
func (u *SQLUnitOfWork) Stores() Stores {
	return storesOn(u.db)
}

// Do runs fn in a transaction.
func (u *SQLUnitOfWork) Do(ctx context.Context, fn func(Stores) error) error {
	start := time.Now()
	err := database.WithTx(ctx, u.db, func(tx *sqlx.Tx) error {
		return fn(storesOn(tx))
	})
	u.metrics.ObserveTransaction(err == nil, time.Since(start))
	return err
}

func storesOn(exec sqlx.ExtContext) Stores {
	return Stores{
		Districts:  repository.NewDistrictRepository(exec),
		Drivers:    repository.NewDriverRepository(exec),
		Categories: repository.NewWasteCategoryRepository(exec),
		Requests:   repository.NewWasteRequestRepository(exec),
		Payments:   repository.NewPaymentRepository(exec),
		Users:      repository.NewUserRepository(exec),
		Relations:  repository.NewRelationshipRepository(exec),
		Outbox:     repository.NewOutboxRepository(exec),
	}
}
