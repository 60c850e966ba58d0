package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/repository"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

// memDB is an in-memory stand-in for the PostgreSQL schema used by service tests.
type memDB struct {
	districts  map[string]models.District
	drivers    map[string]models.Driver
	categories map[string]models.WasteCategory
	requests   map[string]models.WasteRequest
	payments   map[string]models.Payment
	users      map[string]models.User

	districtDrivers  map[string][]string
	districtRequests map[string][]string
	driverRequests   map[string][]string

	events []models.OutboxEvent
	seq    int

	// requestUpdateErr, when set, is returned by the next waste request update.
	requestUpdateErr error
}

func newMemDB() *memDB {
	return &memDB{
		districts:        map[string]models.District{},
		drivers:          map[string]models.Driver{},
		categories:       map[string]models.WasteCategory{},
		requests:         map[string]models.WasteRequest{},
		payments:         map[string]models.Payment{},
		users:            map[string]models.User{},
		districtDrivers:  map[string][]string{},
		districtRequests: map[string][]string{},
		driverRequests:   map[string][]string{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) clone() *memDB {
	c := newMemDB()
	for k, v := range db.districts {
		v.Cities = append(pq.StringArray(nil), v.Cities...)
		c.districts[k] = v
	}
	for k, v := range db.drivers {
		v.Images = append(pq.StringArray(nil), v.Images...)
		c.drivers[k] = v
	}
	for k, v := range db.categories {
		c.categories[k] = v
	}
	for k, v := range db.requests {
		c.requests[k] = v
	}
	for k, v := range db.payments {
		c.payments[k] = v
	}
	for k, v := range db.users {
		c.users[k] = v
	}
	copyLinks := func(dst, src map[string][]string) {
		for k, v := range src {
			dst[k] = append([]string(nil), v...)
		}
	}
	copyLinks(c.districtDrivers, db.districtDrivers)
	copyLinks(c.districtRequests, db.districtRequests)
	copyLinks(c.driverRequests, db.driverRequests)
	c.events = append([]models.OutboxEvent(nil), db.events...)
	c.seq = db.seq
	return c
}

func (db *memDB) stores() Stores {
	return Stores{
		Districts:  memDistricts{db},
		Drivers:    memDrivers{db},
		Categories: memCategories{db},
		Requests:   memRequests{db},
		Payments:   memPayments{db},
		Users:      memUsers{db},
		Relations:  memRelations{db},
		Outbox:     memOutbox{db},
	}
}

// memUnitOfWork restores the snapshot taken before fn whenever fn fails.
type memUnitOfWork struct {
	db       *memDB
	commits  int
	rollback int
}

func newMemUnitOfWork(db *memDB) *memUnitOfWork {
	return &memUnitOfWork{db: db}
}

func (u *memUnitOfWork) Stores() Stores { return u.db.stores() }

func (u *memUnitOfWork) Do(ctx context.Context, fn func(Stores) error) error {
	snapshot := u.db.clone()
	if err := fn(u.db.stores()); err != nil {
		*u.db = *snapshot
		u.rollback++
		return err
	}
	u.commits++
	return nil
}

type memDistricts struct{ db *memDB }

func (m memDistricts) FindByID(ctx context.Context, id string) (*models.District, error) {
	d, ok := m.db.districts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d.Cities = append(pq.StringArray(nil), d.Cities...)
	return &d, nil
}

func (m memDistricts) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for id, d := range m.db.districts {
		if id != excludeID && strings.EqualFold(d.DistrictCode, code) {
			return true, nil
		}
	}
	return false, nil
}

func (m memDistricts) List(ctx context.Context, filter models.DistrictFilter) ([]models.District, int, error) {
	var out []models.District
	for _, d := range m.db.districts {
		if filter.Active != nil && d.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m memDistricts) Create(ctx context.Context, d *models.District) error {
	if d.ID == "" {
		d.ID = m.db.nextID("district")
	}
	m.db.districts[d.ID] = *d
	return nil
}

func (m memDistricts) Update(ctx context.Context, d *models.District) error {
	if _, ok := m.db.districts[d.ID]; !ok {
		return sql.ErrNoRows
	}
	m.db.districts[d.ID] = *d
	return nil
}

func (m memDistricts) Delete(ctx context.Context, id string) error {
	if _, ok := m.db.districts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.db.districts, id)
	return nil
}

type memDrivers struct{ db *memDB }

func (m memDrivers) FindByID(ctx context.Context, id string) (*models.Driver, error) {
	d, ok := m.db.drivers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d.Images = append(pq.StringArray(nil), d.Images...)
	return &d, nil
}

func (m memDrivers) FindByUserID(ctx context.Context, userID string) (*models.Driver, error) {
	for _, d := range m.db.drivers {
		if d.UserID == userID {
			d.Images = append(pq.StringArray(nil), d.Images...)
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memDrivers) ExistsByVehicle(ctx context.Context, vehicle, excludeID string) (bool, error) {
	for id, d := range m.db.drivers {
		if id != excludeID && strings.EqualFold(d.VehicleNumber, vehicle) {
			return true, nil
		}
	}
	return false, nil
}

func (m memDrivers) List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, int, error) {
	var out []models.Driver
	for _, d := range m.db.drivers {
		if filter.DistrictID != "" && d.DistrictID != filter.DistrictID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m memDrivers) Create(ctx context.Context, d *models.Driver) error {
	if d.ID == "" {
		d.ID = m.db.nextID("driver")
	}
	m.db.drivers[d.ID] = *d
	return nil
}

func (m memDrivers) Update(ctx context.Context, d *models.Driver) error {
	if _, ok := m.db.drivers[d.ID]; !ok {
		return sql.ErrNoRows
	}
	m.db.drivers[d.ID] = *d
	return nil
}

func (m memDrivers) Delete(ctx context.Context, id string) error {
	if _, ok := m.db.drivers[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.db.drivers, id)
	return nil
}

type memCategories struct{ db *memDB }

func (m memCategories) FindByID(ctx context.Context, id string) (*models.WasteCategory, error) {
	c, ok := m.db.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m memCategories) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for id, c := range m.db.categories {
		if id != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m memCategories) List(ctx context.Context, filter models.WasteCategoryFilter) ([]models.WasteCategory, error) {
	var out []models.WasteCategory
	for _, c := range m.db.categories {
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memCategories) Create(ctx context.Context, c *models.WasteCategory) error {
	if c.ID == "" {
		c.ID = m.db.nextID("category")
	}
	m.db.categories[c.ID] = *c
	return nil
}

func (m memCategories) Update(ctx context.Context, c *models.WasteCategory) error {
	if _, ok := m.db.categories[c.ID]; !ok {
		return sql.ErrNoRows
	}
	m.db.categories[c.ID] = *c
	return nil
}

func (m memCategories) Delete(ctx context.Context, id string) error {
	if _, ok := m.db.categories[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.db.categories, id)
	return nil
}

type memRequests struct{ db *memDB }

func (m memRequests) FindByID(ctx context.Context, id string) (*models.WasteRequest, error) {
	r, ok := m.db.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (m memRequests) List(ctx context.Context, filter models.WasteRequestFilter) ([]models.WasteRequest, int, error) {
	var out []models.WasteRequest
	for _, r := range m.db.requests {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.DriverID != "" && !r.AssignedTo(filter.DriverID) {
			continue
		}
		if filter.DistrictID != "" && r.DistrictID != filter.DistrictID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m memRequests) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	count := 0
	for _, r := range m.db.requests {
		if r.WasteCategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (m memRequests) Create(ctx context.Context, r *models.WasteRequest) error {
	if r.ID == "" {
		r.ID = m.db.nextID("request")
	}
	r.Version = 1
	m.db.requests[r.ID] = *r
	return nil
}

func (m memRequests) Update(ctx context.Context, r *models.WasteRequest) error {
	if err := m.db.requestUpdateErr; err != nil {
		m.db.requestUpdateErr = nil
		return err
	}
	stored, ok := m.db.requests[r.ID]
	if !ok || stored.Version != r.Version {
		return repository.ErrStaleVersion
	}
	r.Version++
	m.db.requests[r.ID] = *r
	return nil
}

func (m memRequests) Delete(ctx context.Context, id string) error {
	if _, ok := m.db.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.db.requests, id)
	return nil
}

type memPayments struct{ db *memDB }

func (m memPayments) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	p, ok := m.db.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (m memPayments) FindByRequestID(ctx context.Context, requestID string) (*models.Payment, error) {
	for _, p := range m.db.payments {
		if p.WasteRequestID == requestID {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memPayments) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	var out []models.Payment
	for _, p := range m.db.payments {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m memPayments) Create(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = m.db.nextID("payment")
	}
	p.Version = 1
	m.db.payments[p.ID] = *p
	return nil
}

func (m memPayments) Update(ctx context.Context, p *models.Payment) error {
	stored, ok := m.db.payments[p.ID]
	if !ok || stored.Version != p.Version {
		return repository.ErrStaleVersion
	}
	p.Version++
	m.db.payments[p.ID] = *p
	return nil
}

func (m memPayments) Delete(ctx context.Context, id string) error {
	if _, ok := m.db.payments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.db.payments, id)
	return nil
}

type memUsers struct{ db *memDB }

func (m memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.db.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

type memRelations struct{ db *memDB }

func link(set map[string][]string, owner, child string) {
	for _, id := range set[owner] {
		if id == child {
			return
		}
	}
	set[owner] = append(set[owner], child)
}

func unlink(set map[string][]string, owner, child string) {
	ids := set[owner]
	for i, id := range ids {
		if id == child {
			set[owner] = append(ids[:i:i], ids[i+1:]...)
			return
		}
	}
}

func (m memRelations) AttachDistrictDriver(ctx context.Context, districtID, driverID string) error {
	link(m.db.districtDrivers, districtID, driverID)
	return nil
}

func (m memRelations) DetachDistrictDriver(ctx context.Context, districtID, driverID string) error {
	unlink(m.db.districtDrivers, districtID, driverID)
	return nil
}

func (m memRelations) AttachDistrictRequest(ctx context.Context, districtID, requestID string) error {
	link(m.db.districtRequests, districtID, requestID)
	return nil
}

func (m memRelations) DetachDistrictRequest(ctx context.Context, districtID, requestID string) error {
	unlink(m.db.districtRequests, districtID, requestID)
	return nil
}

func (m memRelations) AttachDriverRequest(ctx context.Context, driverID, requestID string) error {
	link(m.db.driverRequests, driverID, requestID)
	return nil
}

func (m memRelations) DetachDriverRequest(ctx context.Context, driverID, requestID string) error {
	unlink(m.db.driverRequests, driverID, requestID)
	return nil
}

func (m memRelations) DistrictDriverIDs(ctx context.Context, districtID string) ([]string, error) {
	return append([]string(nil), m.db.districtDrivers[districtID]...), nil
}

func (m memRelations) DistrictRequestIDs(ctx context.Context, districtID string) ([]string, error) {
	return append([]string(nil), m.db.districtRequests[districtID]...), nil
}

func (m memRelations) DriverRequestIDs(ctx context.Context, driverID string) ([]string, error) {
	return append([]string(nil), m.db.driverRequests[driverID]...), nil
}

type memOutbox struct{ db *memDB }

func (m memOutbox) Add(ctx context.Context, event *models.OutboxEvent) error {
	if event.ID == "" {
		event.ID = m.db.nextID("event")
	}
	m.db.events = append(m.db.events, *event)
	return nil
}

func (db *memDB) eventTypes() []models.EventType {
	types := make([]models.EventType, 0, len(db.events))
	for _, e := range db.events {
		types = append(types, e.Type)
	}
	return types
}

// memCacheRepo is a CacheStore backed by a map.
type memCacheRepo struct {
	store       map[string][]byte
	invalidated []string
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{store: map[string][]byte{}}
}

func (c *memCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (c *memCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = payload
	return nil
}

func (c *memCacheRepo) DeletePrefix(_ context.Context, prefix string) (int, error) {
	c.invalidated = append(c.invalidated, prefix)
	removed := 0
	for key := range c.store {
		if strings.HasPrefix(key, prefix) {
			delete(c.store, key)
			removed++
		}
	}
	return removed, nil
}
