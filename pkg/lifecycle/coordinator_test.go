package lifecycle_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecotrace/collect-api/pkg/database"
	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/repositories"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// fakeTx satisfies database.Tx without a real database.
type fakeTx struct{}

func (fakeTx) IsOpen() bool                       { return true }
func (fakeTx) Commit(ctx context.Context) error   { return nil }
func (fakeTx) Rollback(ctx context.Context) error { return nil }
func (fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (fakeTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (fakeTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (fakeTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}
func (fakeTx) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return nil
}

// fakeDB satisfies database.DB for coordinator wiring; only GetTx is used.
type fakeDB struct{}

func (fakeDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, nil
}
func (fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (fakeDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (fakeDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (fakeDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row { return nil }
func (fakeDB) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return nil
}
func (fakeDB) PingContext(ctx context.Context) error    { return nil }
func (fakeDB) SetMaxOpenConns(n int)                    {}
func (fakeDB) SetMaxIdleConns(n int)                    {}
func (fakeDB) SetConnMaxLifetime(d time.Duration)       {}
func (fakeDB) Close() error                             { return nil }
func (fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, fakeTx{}, nil
}

// fakeRequests is an in-memory RequestStore.
type fakeRequests struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.Request
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{rows: map[int64]models.Request{}}
}

func (f *fakeRequests) Create(ctx context.Context, r *models.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeRequests) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, repositories.NotFound("collection request %d does not exist", id)
	}
	return &row, nil
}

func (f *fakeRequests) GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRequests) Update(ctx context.Context, r *models.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[r.ID]; !ok {
		return repositories.NotFound("collection request %d does not exist", r.ID)
	}
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeRequests) ListForPrincipal(ctx context.Context, p repositories.Principal) ([]models.Request, error) {
	return nil, nil
}
func (f *fakeRequests) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	return len(f.rows), nil
}
func (f *fakeRequests) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	return false, nil
}
func (f *fakeRequests) CountByStatus(ctx context.Context) (map[string]int, error) { return nil, nil }

// fakePickups is an in-memory PickupStore.
type fakePickups struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.PickupEvent
}

func newFakePickups() *fakePickups {
	return &fakePickups{rows: map[int64]models.PickupEvent{}}
}

func (f *fakePickups) Create(ctx context.Context, p *models.PickupEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.rows[p.ID] = *p
	return nil
}

func (f *fakePickups) GetByID(ctx context.Context, id int64) (*models.PickupEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, repositories.NotFound("pickup event %d does not exist", id)
	}
	return &row, nil
}

func (f *fakePickups) GetByIDForUpdate(ctx context.Context, id int64) (*models.PickupEvent, error) {
	return f.GetByID(ctx, id)
}

func (f *fakePickups) Update(ctx context.Context, p *models.PickupEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[p.ID]; !ok {
		return repositories.NotFound("pickup event %d does not exist", p.ID)
	}
	f.rows[p.ID] = *p
	return nil
}

func (f *fakePickups) ListForPrincipal(ctx context.Context, p repositories.Principal) ([]models.PickupEvent, error) {
	return nil, nil
}
func (f *fakePickups) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	return len(f.rows), nil
}
func (f *fakePickups) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	return false, nil
}

func (f *fakePickups) ExistsForOrigin(ctx context.Context, originRequestID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.OriginRequestID != nil && *row.OriginRequestID == originRequestID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePickups) ListOverduePlanned(ctx context.Context, before time.Time) ([]models.PickupEvent, error) {
	return nil, nil
}
func (f *fakePickups) CountByStatus(ctx context.Context) (map[string]int, error) { return nil, nil }

func (f *fakePickups) countForOrigin(originRequestID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, row := range f.rows {
		if row.OriginRequestID != nil && *row.OriginRequestID == originRequestID {
			count++
		}
	}
	return count
}

// fakeMaterials is an in-memory MaterialStore.
type fakeMaterials struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.MaterialItem
}

func newFakeMaterials() *fakeMaterials {
	return &fakeMaterials{rows: map[int64]models.MaterialItem{}}
}

func (f *fakeMaterials) CreateBatch(ctx context.Context, items []*models.MaterialItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.nextID++
		item.ID = f.nextID
		item.CreatedAt = time.Now().UTC()
		item.UpdatedAt = item.CreatedAt
		f.rows[item.ID] = *item
	}
	return nil
}

func (f *fakeMaterials) GetByID(ctx context.Context, id int64) (*models.MaterialItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, repositories.NotFound("material item %d does not exist", id)
	}
	return &row, nil
}

func (f *fakeMaterials) GetByIDForUpdate(ctx context.Context, id int64) (*models.MaterialItem, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeMaterials) Update(ctx context.Context, item *models.MaterialItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[item.ID]; !ok {
		return repositories.NotFound("material item %d does not exist", item.ID)
	}
	f.rows[item.ID] = *item
	return nil
}

func (f *fakeMaterials) ListForPrincipal(ctx context.Context, p repositories.Principal) ([]models.MaterialItem, error) {
	return nil, nil
}

func (f *fakeMaterials) ExistsForPickup(ctx context.Context, pickupEventID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.PickupEventID == pickupEventID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMaterials) CountByState(ctx context.Context) (map[string]int, error) { return nil, nil }

func (f *fakeMaterials) countForPickup(pickupEventID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, row := range f.rows {
		if row.PickupEventID == pickupEventID {
			count++
		}
	}
	return count
}

// fakeAllocator hands out monotonically increasing references.
type fakeAllocator struct {
	mu  sync.Mutex
	seq int
}

func (f *fakeAllocator) Allocate(ctx context.Context, entityType, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("%s-2026-%03d", prefix, f.seq), nil
}

// recordingEmitter records emitted lifecycle events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) record(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, name)
}

func (e *recordingEmitter) RequestApproved(ctx context.Context, r *models.Request, p *models.PickupEvent) {
	e.record("request.approved")
}
func (e *recordingEmitter) RequestRejected(ctx context.Context, r *models.Request) {
	e.record("request.rejected")
}
func (e *recordingEmitter) PickupAssigned(ctx context.Context, p *models.PickupEvent) {
	e.record("pickup.assigned")
}
func (e *recordingEmitter) PickupCompleted(ctx context.Context, p *models.PickupEvent) {
	e.record("pickup.completed")
}
func (e *recordingEmitter) MaterialsReady(ctx context.Context, p *models.PickupEvent, items []*models.MaterialItem) {
	e.record("materials.ready")
}

func (e *recordingEmitter) has(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, event := range e.events {
		if event == name {
			return true
		}
	}
	return false
}

type fixture struct {
	coordinator *lifecycle.Coordinator
	requests    *fakeRequests
	pickups     *fakePickups
	materials   *fakeMaterials
	emitter     *recordingEmitter
}

func newFixture() *fixture {
	requests := newFakeRequests()
	pickups := newFakePickups()
	materials := newFakeMaterials()
	emitter := &recordingEmitter{}
	coordinator := lifecycle.NewCoordinator(
		fakeDB{}, requests, pickups, materials,
		&fakeAllocator{}, emitter, getTestLogger(),
	)
	return &fixture{
		coordinator: coordinator,
		requests:    requests,
		pickups:     pickups,
		materials:   materials,
		emitter:     emitter,
	}
}

func submitInput(mode string) lifecycle.SubmitRequestInput {
	address := "12 rue des Lilas, Lyon"
	return lifecycle.SubmitRequestInput{
		Category:     models.CategoryComputer,
		Description:  "old laptop",
		QuantityBand: models.QuantityBand5To10,
		Mode:         mode,
		DesiredDate:  time.Now().UTC().Add(24 * time.Hour),
		TimeWindow:   models.TimeWindowMorning,
		Address:      &address,
		Phone:        "06 12 34 56 78",
	}
}

func TestSubmitRequestValidation(t *testing.T) {
	f := newFixture()
	requester := principal(models.RoleRequester)
	ctx := context.Background()

	t.Run("home mode requires address", func(t *testing.T) {
		input := submitInput(models.PickupModeHome)
		input.Address = nil
		_, err := f.coordinator.SubmitRequest(ctx, requester, input)
		assert.ErrorIs(t, err, lifecycle.ErrValidation)
	})

	t.Run("past date rejected", func(t *testing.T) {
		input := submitInput(models.PickupModeHome)
		input.DesiredDate = time.Now().UTC().Add(-48 * time.Hour)
		_, err := f.coordinator.SubmitRequest(ctx, requester, input)
		assert.ErrorIs(t, err, lifecycle.ErrValidation)
	})

	t.Run("bad phone rejected", func(t *testing.T) {
		input := submitInput(models.PickupModeHome)
		input.Phone = "12345"
		_, err := f.coordinator.SubmitRequest(ctx, requester, input)
		assert.ErrorIs(t, err, lifecycle.ErrValidation)
	})

	t.Run("valid input accepted", func(t *testing.T) {
		request, err := f.coordinator.SubmitRequest(ctx, requester, submitInput(models.PickupModeHome))
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusSubmitted, request.Status)
		assert.Regexp(t, `^COL-\d{4}-\d{3}$`, request.Reference)
	})
}

func TestHomeApprovalCreatesPickup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeHome))
	require.NoError(t, err)

	approved, err := f.coordinator.ApproveRequest(ctx, principal(models.RoleApprover), request.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusInProgress, approved.Status)
	assert.Equal(t, 1, f.pickups.countForOrigin(request.ID))
	pickup, err := f.pickups.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusPlanned, pickup.Status)
	assert.Equal(t, request.Address, pickup.Address)
	assert.Equal(t, request.Phone, pickup.Phone)
	assert.True(t, f.emitter.has("request.approved"))
}

func TestApproveTwiceFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	approver := principal(models.RoleApprover)

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeHome))
	require.NoError(t, err)

	_, err = f.coordinator.ApproveRequest(ctx, approver, request.ID, nil)
	require.NoError(t, err)

	_, err = f.coordinator.ApproveRequest(ctx, approver, request.ID, nil)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Equal(t, 1, f.pickups.countForOrigin(request.ID), "exactly one pickup event")
}

func TestApproveRequiresApproverRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeHome))
	require.NoError(t, err)

	_, err = f.coordinator.ApproveRequest(ctx, principal(models.RoleHauler), request.ID, nil)
	assert.ErrorIs(t, err, lifecycle.ErrPermissionDenied)
}

func TestDropoffApprovalRecordsDetails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeDropoff))
	require.NoError(t, err)

	details := "Point Relais Part-Dieu, Saturday morning"
	approved, err := f.coordinator.ApproveRequest(ctx, principal(models.RoleApprover), request.ID, &details)
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.DropoffDetails)
	assert.Equal(t, details, *approved.DropoffDetails)
	assert.Equal(t, 0, f.pickups.countForOrigin(request.ID), "no pickup for drop-off approvals")
}

func TestRejectPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	approver := principal(models.RoleApprover)

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeHome))
	require.NoError(t, err)

	rejected, err := f.coordinator.RejectRequest(ctx, approver, request.ID, "incomplete")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "incomplete", *rejected.RejectionReason)
	assert.Equal(t, 0, f.pickups.countForOrigin(request.ID))
	assert.True(t, f.emitter.has("request.rejected"))

	_, err = f.coordinator.RejectRequest(ctx, approver, request.ID, "again")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = f.coordinator.ApproveRequest(ctx, approver, request.ID, nil)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestDuplicateOriginGuard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeHome))
	require.NoError(t, err)
	_, err = f.coordinator.ApproveRequest(ctx, principal(models.RoleApprover), request.ID, nil)
	require.NoError(t, err)

	originID := request.ID
	_, err = f.coordinator.CreatePickup(ctx, principal(models.RoleDispatcher), lifecycle.CreatePickupInput{
		OriginRequestID: &originID,
		ScheduledDate:   time.Now().UTC().Add(48 * time.Hour),
		Mode:            models.PickupModeHome,
		Phone:           "0612345678",
	})
	assert.ErrorIs(t, err, lifecycle.ErrDuplicateOrigin)
}

// completedFixture walks a home request through approval and pickup completion.
func completedFixture(t *testing.T) (*fixture, *models.Request, *models.PickupEvent) {
	t.Helper()
	f := newFixture()
	ctx := context.Background()

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeHome))
	require.NoError(t, err)
	_, err = f.coordinator.ApproveRequest(ctx, principal(models.RoleApprover), request.ID, nil)
	require.NoError(t, err)

	dispatcher := principal(models.RoleDispatcher)
	_, err = f.coordinator.AdvancePickup(ctx, dispatcher, 1, models.PickupStatusInProgress, nil)
	require.NoError(t, err)
	pickup, err := f.coordinator.AdvancePickup(ctx, dispatcher, 1, models.PickupStatusCompleted, nil)
	require.NoError(t, err)

	return f, request, pickup
}

func TestCompletePickupMaterializesDefaultItem(t *testing.T) {
	f, request, pickup := completedFixture(t)

	assert.Equal(t, models.PickupStatusCompleted, pickup.Status)
	require.Equal(t, 1, f.materials.countForPickup(pickup.ID))

	item, err := f.materials.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.MaterialStateCollected, item.State)
	assert.Equal(t, 7.5, item.Quantity, "5-10kg band maps to its midpoint")
	assert.Equal(t, models.CategoryComputer, item.Category)

	updated, err := f.requests.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, updated.Status)

	assert.True(t, f.emitter.has("pickup.completed"))
	assert.True(t, f.emitter.has("materials.ready"))
}

func TestCompletePickupIsIdempotent(t *testing.T) {
	f, _, pickup := completedFixture(t)
	ctx := context.Background()

	again, err := f.coordinator.AdvancePickup(ctx, principal(models.RoleDispatcher), pickup.ID, models.PickupStatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PickupStatusCompleted, again.Status)
	assert.Equal(t, 1, f.materials.countForPickup(pickup.ID), "no duplicate materialization")
}

func TestAdvancePickupIllegalTransition(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeHome))
	require.NoError(t, err)
	_, err = f.coordinator.ApproveRequest(ctx, principal(models.RoleApprover), request.ID, nil)
	require.NoError(t, err)

	_, err = f.coordinator.AdvancePickup(ctx, principal(models.RoleDispatcher), 1, models.PickupStatusCompleted, nil)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "PLANNED cannot jump to COMPLETED")
}

func TestAssignHaulerSelfAssignment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	request, err := f.coordinator.SubmitRequest(ctx, principal(models.RoleRequester), submitInput(models.PickupModeHome))
	require.NoError(t, err)
	_, err = f.coordinator.ApproveRequest(ctx, principal(models.RoleApprover), request.ID, nil)
	require.NoError(t, err)

	hauler := principal(models.RoleHauler)
	pickup, err := f.coordinator.AssignHauler(ctx, hauler, 1, hauler.UserID)
	require.NoError(t, err)
	require.NotNil(t, pickup.HaulerID)
	assert.Equal(t, hauler.UserID, *pickup.HaulerID)
	assert.True(t, f.emitter.has("pickup.assigned"))

	_, err = f.coordinator.AssignHauler(ctx, hauler, 1, uuid.New())
	assert.ErrorIs(t, err, lifecycle.ErrPermissionDenied, "haulers cannot assign others")
}

func TestFinalizeDispositionValidatesQuantity(t *testing.T) {
	f, _, _ := completedFixture(t)
	ctx := context.Background()
	processor := principal(models.RoleProcessor)

	_, err := f.coordinator.AssignProcessor(ctx, processor, 1, processor.UserID)
	require.NoError(t, err)

	_, err = f.coordinator.FinalizeDisposition(ctx, processor, 1, lifecycle.DispositionInput{
		Disposition:   models.MaterialStateRecyclable,
		FinalQuantity: 9.0,
		Method:        "manual dismantling",
	})
	assert.ErrorIs(t, err, lifecycle.ErrValidation, "final quantity above collected must fail")

	item, err := f.materials.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MaterialStateSorting, item.State, "item stays in TRI after rejected disposition")
}

func TestMaterialProcessingFlow(t *testing.T) {
	f, _, _ := completedFixture(t)
	ctx := context.Background()
	processor := principal(models.RoleProcessor)

	_, err := f.coordinator.AssignProcessor(ctx, processor, 1, processor.UserID)
	require.NoError(t, err)

	item, err := f.coordinator.FinalizeDisposition(ctx, processor, 1, lifecycle.DispositionInput{
		Disposition:   models.MaterialStateRecyclable,
		FinalQuantity: 7.5,
		Method:        "manual dismantling",
		Notes:         "clean separation",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaterialStateRecyclable, item.State)
	assert.Equal(t, 7.5, item.Quantity)
	assert.NotEmpty(t, item.AuditNotes.Data)

	// a different processor cannot flip the terminal state
	_, err = f.coordinator.AdvanceMaterialTerminal(ctx, principal(models.RoleProcessor), 1)
	assert.ErrorIs(t, err, lifecycle.ErrPermissionDenied)

	item, err = f.coordinator.AdvanceMaterialTerminal(ctx, processor, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MaterialStateRecycled, item.State)
	require.NotNil(t, item.ProcessedAt)
}

func TestAssignProcessorRequiresCollectedState(t *testing.T) {
	f, _, _ := completedFixture(t)
	ctx := context.Background()
	processor := principal(models.RoleProcessor)

	_, err := f.coordinator.AssignProcessor(ctx, processor, 1, processor.UserID)
	require.NoError(t, err)

	other := principal(models.RoleProcessor)
	_, err = f.coordinator.AssignProcessor(ctx, other, 1, other.UserID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "sorting items cannot be reassigned")
}
