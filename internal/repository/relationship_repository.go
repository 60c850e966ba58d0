package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// link describes one back-reference join table.
type link struct {
	table string
	owner string
	child string
}

var (
	districtDriversLink  = link{table: "district_drivers", owner: "district_id", child: "driver_id"}
	districtRequestsLink = link{table: "district_waste_requests", owner: "district_id", child: "waste_request_id"}
	driverRequestsLink   = link{table: "driver_waste_requests", owner: "driver_id", child: "waste_request_id"}
)

// RelationshipRepository stores back-reference sets as join tables.
// Attaching an existing pair and detaching an absent pair are both no-ops.
type RelationshipRepository struct {
	db sqlx.ExtContext
}

// NewRelationshipRepository constructs the repository.
func NewRelationshipRepository(db sqlx.ExtContext) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// AttachDistrictDriver adds driverID to the district's driver set.
func (r *RelationshipRepository) AttachDistrictDriver(ctx context.Context, districtID, driverID string) error {
	return r.attach(ctx, districtDriversLink, districtID, driverID)
}

// DetachDistrictDriver removes driverID from the district's driver set.
func (r *RelationshipRepository) DetachDistrictDriver(ctx context.Context, districtID, driverID string) error {
	return r.detach(ctx, districtDriversLink, districtID, driverID)
}

// AttachDistrictRequest adds requestID to the district's request set.
func (r *RelationshipRepository) AttachDistrictRequest(ctx context.Context, districtID, requestID string) error {
	return r.attach(ctx, districtRequestsLink, districtID, requestID)
}

// DetachDistrictRequest removes requestID from the district's request set.
func (r *RelationshipRepository) DetachDistrictRequest(ctx context.Context, districtID, requestID string) error {
	return r.detach(ctx, districtRequestsLink, districtID, requestID)
}

// AttachDriverRequest adds requestID to the driver's assignment set.
func (r *RelationshipRepository) AttachDriverRequest(ctx context.Context, driverID, requestID string) error {
	return r.attach(ctx, driverRequestsLink, driverID, requestID)
}

// DetachDriverRequest removes requestID from the driver's assignment set.
func (r *RelationshipRepository) DetachDriverRequest(ctx context.Context, driverID, requestID string) error {
	return r.detach(ctx, driverRequestsLink, driverID, requestID)
}

// DistrictDriverIDs lists the drivers attached to a district.
func (r *RelationshipRepository) DistrictDriverIDs(ctx context.Context, districtID string) ([]string, error) {
	return r.children(ctx, districtDriversLink, districtID)
}

// DistrictRequestIDs lists the requests attached to a district.
func (r *RelationshipRepository) DistrictRequestIDs(ctx context.Context, districtID string) ([]string, error) {
	return r.children(ctx, districtRequestsLink, districtID)
}

// DriverRequestIDs lists the requests attached to a driver.
func (r *RelationshipRepository) DriverRequestIDs(ctx context.Context, driverID string) ([]string, error) {
	return r.children(ctx, driverRequestsLink, driverID)
}

func (r *RelationshipRepository) attach(ctx context.Context, l link, ownerID, childID string) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, created_at) VALUES ($1, $2, NOW()) ON CONFLICT (%s, %s) DO NOTHING`,
		l.table, l.owner, l.child, l.owner, l.child)
	if _, err := r.db.ExecContext(ctx, query, ownerID, childID); err != nil {
		return fmt.Errorf("attach %s: %w", l.table, err)
	}
	return nil
}

func (r *RelationshipRepository) detach(ctx context.Context, l link, ownerID, childID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`, l.table, l.owner, l.child)
	if _, err := r.db.ExecContext(ctx, query, ownerID, childID); err != nil {
		return fmt.Errorf("detach %s: %w", l.table, err)
	}
	return nil
}

func (r *RelationshipRepository) children(ctx context.Context, l link, ownerID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY created_at ASC, %s ASC`, l.child, l.table, l.owner, l.child)
	ids := []string{}
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, ownerID); err != nil {
		return nil, fmt.Errorf("list %s: %w", l.table, err)
	}
	return ids, nil
}
