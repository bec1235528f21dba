package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"turfmania-backend/internal/apperr"
	"turfmania-backend/internal/domain"
	"turfmania-backend/internal/logger"
	"turfmania-backend/internal/repository"
	"turfmania-backend/internal/service"

	"github.com/gorilla/mux"
)

const maxSubmitMemory = 32 << 20 // 32 MB multipart buffer

// OrganizationRequestHandler exposes the request workflow over REST. The
// upstream gateway authenticates callers and forwards the account id in
// X-User-ID.
type OrganizationRequestHandler struct {
	requests service.OrganizationRequestService
	orgRepo  repository.OrganizationRepository
	userRepo repository.UserRepository
	notifier service.OutcomeNotifier
	db       *sql.DB
}

func NewOrganizationRequestHandler(
	requests service.OrganizationRequestService,
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	notifier service.OutcomeNotifier,
	db *sql.DB,
) *OrganizationRequestHandler {
	return &OrganizationRequestHandler{
		requests: requests,
		orgRepo:  orgRepo,
		userRepo: userRepo,
		notifier: notifier,
		db:       db,
	}
}

// RegisterRoutes mounts the workflow endpoints on the router.
func (h *OrganizationRequestHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1/organization-requests").Subrouter()
	api.HandleFunc("", h.Submit).Methods(http.MethodPost)
	api.HandleFunc("", h.List).Methods(http.MethodGet)
	api.HandleFunc("/me", h.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}/process", h.StartProcessing).Methods(http.MethodPost)
	api.HandleFunc("/{id:[0-9]+}/cancel-processing", h.CancelProcessing).Methods(http.MethodPost)
	api.HandleFunc("/{id:[0-9]+}/approve", h.Approve).Methods(http.MethodPost)
	api.HandleFunc("/{id:[0-9]+}/reject", h.Reject).Methods(http.MethodPost)
}

func (h *OrganizationRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxSubmitMemory); err != nil {
		writeError(w, apperr.InvalidInput("malformed multipart body"))
		return
	}

	var input service.SubmitRequestInput
	if err := json.Unmarshal([]byte(r.FormValue("request")), &input); err != nil {
		writeError(w, apperr.InvalidInput("malformed request payload"))
		return
	}

	var images []service.ImageUpload
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, apperr.InvalidInput("unreadable image %s", fh.Filename))
				return
			}
			defer f.Close()
			images = append(images, service.ImageUpload{Filename: fh.Filename, Content: f})
		}
	}

	req, err := h.requests.SubmitRequest(r.Context(), callerID, input, images)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *OrganizationRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, err := h.requests.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *OrganizationRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := service.RequestFilters{
		RequesterEmail: q.Get("requester_email"),
		OwnerEmail:     q.Get("owner_email"),
		SortBy:         q.Get("sort_by"),
		SortOrder:      q.Get("sort_order"),
	}
	for _, s := range q["status"] {
		status := domain.RequestStatus(s)
		if !status.Valid() {
			writeError(w, apperr.InvalidInput("unknown status %q", s))
			return
		}
		filters.Status = append(filters.Status, status)
	}
	if v := q.Get("from_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, apperr.InvalidInput("malformed from_date"))
			return
		}
		filters.FromDate = &t
	}
	if v := q.Get("to_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, apperr.InvalidInput("malformed to_date"))
			return
		}
		filters.ToDate = &t
	}

	page := queryInt32(q.Get("page"), 1)
	pageSize := queryInt32(q.Get("limit"), 10)

	result, err := h.requests.ListRequests(r.Context(), filters, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *OrganizationRequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerID(w, r)
	if !ok {
		return
	}
	requests, err := h.requests.ListUserRequests(r.Context(), callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if requests == nil {
		requests = []domain.OrganizationRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *OrganizationRequestHandler) StartProcessing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	adminID, ok := callerID(w, r)
	if !ok {
		return
	}
	req, err := h.requests.StartProcessing(r.Context(), id, adminID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *OrganizationRequestHandler) CancelProcessing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	adminID, ok := callerID(w, r)
	if !ok {
		return
	}
	req, err := h.requests.CancelProcessing(r.Context(), id, adminID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type approveRequestBody struct {
	Organization service.OrganizationData `json:"organization"`
	AdminNotes   string                   `json:"admin_notes"`
}

// Approve creates the organization and marks the request approved in one
// transaction, then notifies after the commit succeeded.
func (h *OrganizationRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	adminID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body approveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.InvalidInput("malformed approval payload"))
		return
	}

	original, err := h.requests.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	wasEdited := h.requests.WasEdited(original, body.Organization)

	owner, err := h.userRepo.GetByEmail(r.Context(), original.OwnerEmail)
	if err != nil {
		writeError(w, err)
		return
	}
	if owner == nil {
		writeError(w, apperr.NotFound("owner account %s not found", original.OwnerEmail))
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	defer tx.Rollback()

	org := &domain.Organization{
		Name:            body.Organization.Name,
		Facilities:      body.Organization.Facilities,
		Location:        body.Organization.Location,
		OrgContactPhone: body.Organization.OrgContactPhone,
		OrgContactEmail: body.Organization.OrgContactEmail,
		OwnerID:         owner.ID,
	}
	if err := h.orgRepo.CreateTx(r.Context(), tx, org); err != nil {
		writeError(w, err)
		return
	}

	req, err := h.requests.ApproveRequest(r.Context(), tx, id, adminID, org.ID, wasEdited, body.AdminNotes)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := tx.Commit(); err != nil {
		writeError(w, err)
		return
	}

	// The engine skipped notification because we supplied the transaction.
	go h.notifier.NotifyOutcome(context.WithoutCancel(r.Context()), req, true, wasEdited)

	writeJSON(w, http.StatusOK, req)
}

type rejectRequestBody struct {
	Notes string `json:"notes"`
}

func (h *OrganizationRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	adminID, ok := callerID(w, r)
	if !ok {
		return
	}

	var body rejectRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.InvalidInput("malformed rejection payload"))
		return
	}
	if strings.TrimSpace(body.Notes) == "" {
		writeError(w, apperr.InvalidInput("rejection notes are required"))
		return
	}

	req, err := h.requests.RejectRequest(r.Context(), id, adminID, body.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// helpers

func pathID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		writeError(w, apperr.InvalidInput("invalid request id %q", raw))
		return 0, false
	}
	return int32(id), true
}

func callerID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	raw := r.Header.Get("X-User-ID")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		writeError(w, apperr.InvalidInput("missing or invalid X-User-ID header"))
		return 0, false
	}
	return int32(id), true
}

func queryInt32(raw string, fallback int32) int32 {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 1 {
		return fallback
	}
	return int32(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		writeJSON(w, statusForKind(appErr.Kind), errorResponse{Error: appErr.Message, Kind: string(appErr.Kind)})
		return
	}
	logger.Error("Internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindUpload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
