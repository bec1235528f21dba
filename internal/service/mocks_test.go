package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"turfmania-backend/internal/domain"
	"turfmania-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockOrganizationRequestRepo
type MockOrganizationRequestRepo struct {
	mock.Mock
}

func (m *MockOrganizationRequestRepo) Create(ctx context.Context, req *domain.OrganizationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockOrganizationRequestRepo) GetByID(ctx context.Context, id int32) (*domain.OrganizationRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrganizationRequest), args.Error(1)
}
func (m *MockOrganizationRequestRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}
func (m *MockOrganizationRequestRepo) MarkProcessing(ctx context.Context, id, adminID int32, startedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, adminID, startedAt)
	return args.Bool(0), args.Error(1)
}
func (m *MockOrganizationRequestRepo) ClearProcessing(ctx context.Context, id int32) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *MockOrganizationRequestRepo) MarkApproved(ctx context.Context, tx *sql.Tx, id int32, status domain.RequestStatus, organizationID int32, adminNotes string) (bool, error) {
	args := m.Called(ctx, tx, id, status, organizationID, adminNotes)
	return args.Bool(0), args.Error(1)
}
func (m *MockOrganizationRequestRepo) MarkRejected(ctx context.Context, id int32, notes string) (bool, error) {
	args := m.Called(ctx, id, notes)
	return args.Bool(0), args.Error(1)
}
func (m *MockOrganizationRequestRepo) List(ctx context.Context, filter repository.RequestFilter, page repository.Pagination) ([]domain.OrganizationRequest, int32, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]domain.OrganizationRequest), args.Get(1).(int32), args.Error(2)
}
func (m *MockOrganizationRequestRepo) ListByRequester(ctx context.Context, requesterID int32) ([]domain.OrganizationRequest, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]domain.OrganizationRequest), args.Error(1)
}
func (m *MockOrganizationRequestRepo) ResetStuckProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) FindIDsByEmailFragment(ctx context.Context, fragment string) ([]int32, error) {
	args := m.Called(ctx, fragment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int32), args.Error(1)
}

// MockFacilityRepo
type MockFacilityRepo struct {
	mock.Mock
}

func (m *MockFacilityRepo) GetByID(ctx context.Context, id int32) (*domain.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Facility), args.Error(1)
}
func (m *MockFacilityRepo) MissingIDs(ctx context.Context, ids []int32) ([]int32, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int32), args.Error(1)
}

// MockAssetStore
type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	args := m.Called(ctx, filename, content)
	return args.String(0), args.Error(1)
}
func (m *MockAssetStore) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// notifyCall records one NotifyOutcome invocation.
type notifyCall struct {
	request   *domain.OrganizationRequest
	approved  bool
	wasEdited bool
}

// stubNotifier collects NotifyOutcome calls on a channel so tests can wait
// for the engine's fire-and-forget goroutine.
type stubNotifier struct {
	calls chan notifyCall
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{calls: make(chan notifyCall, 4)}
}

func (n *stubNotifier) NotifyOutcome(ctx context.Context, req *domain.OrganizationRequest, approved, wasEdited bool) {
	n.calls <- notifyCall{request: req, approved: approved, wasEdited: wasEdited}
}

// wait returns the next recorded call or fails the wait after a second.
func (n *stubNotifier) wait() (notifyCall, bool) {
	select {
	case call := <-n.calls:
		return call, true
	case <-time.After(time.Second):
		return notifyCall{}, false
	}
}

// none reports that no notification arrives within the grace window.
func (n *stubNotifier) none() bool {
	select {
	case <-n.calls:
		return false
	case <-time.After(50 * time.Millisecond):
		return true
	}
}
