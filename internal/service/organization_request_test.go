package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"turfmania-backend/internal/apperr"
	"turfmania-backend/internal/domain"
	"turfmania-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	reqRepo      *MockOrganizationRequestRepo
	userRepo     *MockUserRepo
	facilityRepo *MockFacilityRepo
	assets       *MockAssetStore
	notifier     *stubNotifier
	svc          OrganizationRequestService
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		reqRepo:      new(MockOrganizationRequestRepo),
		userRepo:     new(MockUserRepo),
		facilityRepo: new(MockFacilityRepo),
		assets:       new(MockAssetStore),
		notifier:     newStubNotifier(),
	}
	f.svc = NewOrganizationRequestService(f.reqRepo, f.userRepo, f.facilityRepo, f.assets, f.notifier)
	return f
}

func validSubmitInput() SubmitRequestInput {
	return SubmitRequestInput{
		OrganizationName: "Green Valley Turf",
		Facilities:       []int32{1, 2},
		Location: domain.Location{
			PlaceID: "place-123",
			Address: "12 Park Road",
			City:    "Dhaka",
			Coordinates: domain.GeoPoint{
				Longitude: 90.41, Latitude: 23.81,
			},
		},
		ContactPhone:    "+8801700000000",
		OwnerEmail:      "owner@example.com",
		OrgContactPhone: "+8801800000000",
		OrgContactEmail: "contact@greenvalley.com",
	}
}

func processingRequest(id, adminID int32) *domain.OrganizationRequest {
	startedAt := time.Now().Add(-time.Minute)
	return &domain.OrganizationRequest{
		ID:                  id,
		OrganizationName:    "Green Valley Turf",
		OwnerEmail:          "owner@example.com",
		RequesterID:         7,
		Status:              domain.RequestStatusProcessing,
		ProcessingAdminID:   &adminID,
		ProcessingStartedAt: &startedAt,
	}
}

func TestSubmitRequestSuccess(t *testing.T) {
	f := newEngineFixture()
	input := validSubmitInput()

	f.reqRepo.On("ExistsByName", mock.Anything, input.OrganizationName).Return(false, nil)
	f.userRepo.On("GetByEmail", mock.Anything, input.OwnerEmail).Return(&domain.User{ID: 3, Email: input.OwnerEmail}, nil)
	f.facilityRepo.On("MissingIDs", mock.Anything, input.Facilities).Return([]int32{}, nil)
	f.assets.On("Upload", mock.Anything, "front.jpg", mock.Anything).Return("http://localhost/assets/images/a.jpg", nil)
	f.reqRepo.On("Create", mock.Anything, mock.MatchedBy(func(req *domain.OrganizationRequest) bool {
		return req.Status == domain.RequestStatusPending &&
			req.RequesterID == 7 &&
			len(req.Images) == 1
	})).Return(nil)

	req, err := f.svc.SubmitRequest(context.Background(), 7, input, []ImageUpload{
		{Filename: "front.jpg", Content: strings.NewReader("jpeg-bytes")},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Nil(t, req.ProcessingAdminID)
	assert.Nil(t, req.ProcessingStartedAt)
	assert.Nil(t, req.OrganizationID)
	assert.Equal(t, []string{"http://localhost/assets/images/a.jpg"}, req.Images)
	f.reqRepo.AssertExpectations(t)
}

func TestSubmitRequestDuplicateName(t *testing.T) {
	f := newEngineFixture()
	input := validSubmitInput()

	f.reqRepo.On("ExistsByName", mock.Anything, input.OrganizationName).Return(true, nil)

	_, err := f.svc.SubmitRequest(context.Background(), 7, input, nil)

	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	f.reqRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitRequestBlankName(t *testing.T) {
	f := newEngineFixture()
	input := validSubmitInput()
	input.OrganizationName = "   "

	_, err := f.svc.SubmitRequest(context.Background(), 7, input, nil)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	f.reqRepo.AssertNotCalled(t, "ExistsByName", mock.Anything, mock.Anything)
}

func TestSubmitRequestUnknownOwnerEmail(t *testing.T) {
	f := newEngineFixture()
	input := validSubmitInput()

	f.reqRepo.On("ExistsByName", mock.Anything, input.OrganizationName).Return(false, nil)
	f.userRepo.On("GetByEmail", mock.Anything, input.OwnerEmail).Return(nil, nil)

	_, err := f.svc.SubmitRequest(context.Background(), 7, input, nil)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	f.reqRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitRequestUnknownFacility(t *testing.T) {
	f := newEngineFixture()
	input := validSubmitInput()

	f.reqRepo.On("ExistsByName", mock.Anything, input.OrganizationName).Return(false, nil)
	f.userRepo.On("GetByEmail", mock.Anything, input.OwnerEmail).Return(&domain.User{ID: 3, Email: input.OwnerEmail}, nil)
	f.facilityRepo.On("MissingIDs", mock.Anything, input.Facilities).Return([]int32{2}, nil)

	_, err := f.svc.SubmitRequest(context.Background(), 7, input, nil)

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	assert.Contains(t, err.Error(), "facility 2")
	f.assets.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitRequestUploadFailureCleansUp(t *testing.T) {
	f := newEngineFixture()
	input := validSubmitInput()

	f.reqRepo.On("ExistsByName", mock.Anything, input.OrganizationName).Return(false, nil)
	f.userRepo.On("GetByEmail", mock.Anything, input.OwnerEmail).Return(&domain.User{ID: 3, Email: input.OwnerEmail}, nil)
	f.facilityRepo.On("MissingIDs", mock.Anything, input.Facilities).Return([]int32{}, nil)
	f.assets.On("Upload", mock.Anything, "one.jpg", mock.Anything).Return("http://localhost/assets/images/one.jpg", nil)
	f.assets.On("Upload", mock.Anything, "two.jpg", mock.Anything).Return("", errors.New("disk full"))
	f.assets.On("Delete", mock.Anything, "http://localhost/assets/images/one.jpg").Return(nil)

	_, err := f.svc.SubmitRequest(context.Background(), 7, input, []ImageUpload{
		{Filename: "one.jpg", Content: strings.NewReader("a")},
		{Filename: "two.jpg", Content: strings.NewReader("b")},
	})

	assert.True(t, apperr.IsKind(err, apperr.KindUpload))
	f.assets.AssertCalled(t, "Delete", mock.Anything, "http://localhost/assets/images/one.jpg")
	f.reqRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetRequestNotFound(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("GetByID", mock.Anything, int32(99)).Return(nil, nil)

	_, err := f.svc.GetRequest(context.Background(), 99)

	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestStartProcessingSuccess(t *testing.T) {
	f := newEngineFixture()
	pending := &domain.OrganizationRequest{ID: 5, Status: domain.RequestStatusPending, RequesterID: 7}

	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(pending, nil)
	f.reqRepo.On("MarkProcessing", mock.Anything, int32(5), int32(11), mock.AnythingOfType("time.Time")).Return(true, nil)

	req, err := f.svc.StartProcessing(context.Background(), 5, 11)

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusProcessing, req.Status)
	require.NotNil(t, req.ProcessingAdminID)
	assert.Equal(t, int32(11), *req.ProcessingAdminID)
	assert.NotNil(t, req.ProcessingStartedAt)
}

func TestStartProcessingAlreadyClaimed(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(processingRequest(5, 11), nil)

	_, err := f.svc.StartProcessing(context.Background(), 5, 12)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	f.reqRepo.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStartProcessingLosesRace(t *testing.T) {
	f := newEngineFixture()
	pending := &domain.OrganizationRequest{ID: 5, Status: domain.RequestStatusPending, RequesterID: 7}

	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(pending, nil)
	// Another admin claimed the request between the read and the update.
	f.reqRepo.On("MarkProcessing", mock.Anything, int32(5), int32(11), mock.AnythingOfType("time.Time")).Return(false, nil)

	_, err := f.svc.StartProcessing(context.Background(), 5, 11)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestCancelProcessingSuccess(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(processingRequest(5, 11), nil)
	f.reqRepo.On("ClearProcessing", mock.Anything, int32(5)).Return(true, nil)

	req, err := f.svc.CancelProcessing(context.Background(), 5, 11)

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Nil(t, req.ProcessingAdminID)
	assert.Nil(t, req.ProcessingStartedAt)
}

func TestCancelProcessingNotProcessing(t *testing.T) {
	f := newEngineFixture()
	pending := &domain.OrganizationRequest{ID: 5, Status: domain.RequestStatusPending}
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(pending, nil)

	_, err := f.svc.CancelProcessing(context.Background(), 5, 11)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	f.reqRepo.AssertNotCalled(t, "ClearProcessing", mock.Anything, mock.Anything)
}

func TestApproveRequestUnchanged(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(processingRequest(5, 11), nil)
	f.reqRepo.On("MarkApproved", mock.Anything, (*sql.Tx)(nil), int32(5), domain.RequestStatusApproved, int32(42), "").Return(true, nil)

	req, err := f.svc.ApproveRequest(context.Background(), nil, 5, 11, 42, false, "")

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, req.Status)
	require.NotNil(t, req.OrganizationID)
	assert.Equal(t, int32(42), *req.OrganizationID)
	assert.Nil(t, req.ProcessingAdminID)
	assert.Nil(t, req.ProcessingStartedAt)

	call, ok := f.notifier.wait()
	require.True(t, ok, "expected an outcome notification")
	assert.True(t, call.approved)
	assert.False(t, call.wasEdited)
	assert.Equal(t, domain.RequestStatusApproved, call.request.Status)
}

func TestApproveRequestWithChanges(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(processingRequest(5, 11), nil)
	f.reqRepo.On("MarkApproved", mock.Anything, (*sql.Tx)(nil), int32(5), domain.RequestStatusApprovedWithChanges, int32(42), "trimmed facility list").Return(true, nil)

	req, err := f.svc.ApproveRequest(context.Background(), nil, 5, 11, 42, true, "trimmed facility list")

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApprovedWithChanges, req.Status)
	assert.Equal(t, "trimmed facility list", req.AdminNotes)

	call, ok := f.notifier.wait()
	require.True(t, ok)
	assert.True(t, call.approved)
	assert.True(t, call.wasEdited)
}

func TestApproveRequestNotProcessing(t *testing.T) {
	f := newEngineFixture()
	pending := &domain.OrganizationRequest{ID: 5, Status: domain.RequestStatusPending}
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(pending, nil)

	_, err := f.svc.ApproveRequest(context.Background(), nil, 5, 11, 42, false, "")

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	f.reqRepo.AssertNotCalled(t, "MarkApproved",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, f.notifier.none())
}

func TestApproveRequestAlreadyApproved(t *testing.T) {
	f := newEngineFixture()
	orgID := int32(42)
	approved := &domain.OrganizationRequest{ID: 5, Status: domain.RequestStatusApproved, OrganizationID: &orgID}
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(approved, nil)

	_, err := f.svc.ApproveRequest(context.Background(), nil, 5, 11, 43, false, "")

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	assert.True(t, f.notifier.none())
}

func TestApproveRequestInTransactionSkipsNotification(t *testing.T) {
	f := newEngineFixture()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	dbMock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(processingRequest(5, 11), nil)
	f.reqRepo.On("MarkApproved", mock.Anything, tx, int32(5), domain.RequestStatusApproved, int32(42), "").Return(true, nil)

	req, err := f.svc.ApproveRequest(context.Background(), tx, 5, 11, 42, false, "")

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, req.Status)
	assert.True(t, f.notifier.none(), "transactional approval must not notify before commit")
}

func TestRejectRequestFromPending(t *testing.T) {
	f := newEngineFixture()
	pending := &domain.OrganizationRequest{ID: 5, Status: domain.RequestStatusPending, RequesterID: 7}
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(pending, nil)
	f.reqRepo.On("MarkRejected", mock.Anything, int32(5), "incomplete documents").Return(true, nil)

	req, err := f.svc.RejectRequest(context.Background(), 5, 11, "incomplete documents")

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, req.Status)
	assert.Equal(t, "incomplete documents", req.AdminNotes)

	call, ok := f.notifier.wait()
	require.True(t, ok)
	assert.False(t, call.approved)
	assert.Equal(t, "incomplete documents", call.request.AdminNotes)
}

func TestRejectRequestFromProcessing(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(processingRequest(5, 11), nil)
	f.reqRepo.On("MarkRejected", mock.Anything, int32(5), "duplicate venue").Return(true, nil)

	req, err := f.svc.RejectRequest(context.Background(), 5, 11, "duplicate venue")

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, req.Status)
	assert.Nil(t, req.ProcessingAdminID)
	assert.Nil(t, req.ProcessingStartedAt)
}

func TestRejectRequestAlreadyTerminal(t *testing.T) {
	f := newEngineFixture()
	rejected := &domain.OrganizationRequest{ID: 5, Status: domain.RequestStatusRejected}
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(rejected, nil)

	_, err := f.svc.RejectRequest(context.Background(), 5, 11, "again")

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	f.reqRepo.AssertNotCalled(t, "MarkRejected", mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, f.notifier.none())
}

func TestRejectRequestLosesRace(t *testing.T) {
	f := newEngineFixture()
	pending := &domain.OrganizationRequest{ID: 5, Status: domain.RequestStatusPending}
	f.reqRepo.On("GetByID", mock.Anything, int32(5)).Return(pending, nil)
	f.reqRepo.On("MarkRejected", mock.Anything, int32(5), "late").Return(false, nil)

	_, err := f.svc.RejectRequest(context.Background(), 5, 11, "late")

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	assert.True(t, f.notifier.none())
}

func TestValidateOwnerEmail(t *testing.T) {
	f := newEngineFixture()
	f.userRepo.On("GetByEmail", mock.Anything, "known@example.com").Return(&domain.User{ID: 1, Email: "known@example.com"}, nil)
	f.userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

	ok, err := f.svc.ValidateOwnerEmail(context.Background(), "known@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.ValidateOwnerEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.ValidateOwnerEmail(context.Background(), "not-an-email")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.ValidateOwnerEmail(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, ok)
	f.userRepo.AssertNumberOfCalls(t, "GetByEmail", 2)
}

func TestListRequestsRequesterEmailNoMatch(t *testing.T) {
	f := newEngineFixture()
	f.userRepo.On("FindIDsByEmailFragment", mock.Anything, "nobody").Return([]int32{}, nil)

	result, err := f.svc.ListRequests(context.Background(), RequestFilters{RequesterEmail: "nobody"}, 1, 10)

	require.NoError(t, err)
	assert.Equal(t, int32(0), result.Total)
	assert.Empty(t, result.Requests)
	f.reqRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestListRequestsPagination(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("List", mock.Anything, mock.Anything, repository.Pagination{Page: 2, PageSize: 10}).
		Return([]domain.OrganizationRequest{{ID: 11}, {ID: 12}}, int32(25), nil)

	result, err := f.svc.ListRequests(context.Background(), RequestFilters{}, 2, 10)

	require.NoError(t, err)
	assert.Equal(t, int32(25), result.Total)
	assert.Equal(t, int32(2), result.Page)
	assert.Equal(t, int32(3), result.Pages)
	assert.Len(t, result.Requests, 2)
}

func TestListRequestsDefaultsPage(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("List", mock.Anything, mock.Anything, repository.Pagination{Page: 1, PageSize: 10}).
		Return([]domain.OrganizationRequest{}, int32(0), nil)

	result, err := f.svc.ListRequests(context.Background(), RequestFilters{}, 0, 0)

	require.NoError(t, err)
	assert.Equal(t, int32(1), result.Page)
	assert.Equal(t, int32(0), result.Pages)
}

func TestResetStuckProcessing(t *testing.T) {
	f := newEngineFixture()
	f.reqRepo.On("ResetStuckProcessing", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().Add(-2 * time.Hour)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return(int64(3), nil)

	count, err := f.svc.ResetStuckProcessing(context.Background(), 2*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
