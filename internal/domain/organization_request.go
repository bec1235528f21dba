package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending             RequestStatus = "pending"
	RequestStatusProcessing          RequestStatus = "processing"
	RequestStatusApproved            RequestStatus = "approved"
	RequestStatusApprovedWithChanges RequestStatus = "approved_with_changes"
	RequestStatusRejected            RequestStatus = "rejected"
)

// transitions is the full state machine for an organization request. Guards
// everywhere else derive from this table instead of re-checking statuses
// ad hoc.
var transitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending: {
		RequestStatusProcessing,
		RequestStatusRejected,
	},
	RequestStatusProcessing: {
		RequestStatusPending, // cancel or reclaim
		RequestStatusApproved,
		RequestStatusApprovedWithChanges,
		RequestStatusRejected,
	},
	RequestStatusApproved:            {},
	RequestStatusApprovedWithChanges: {},
	RequestStatusRejected:            {},
}

// CanTransition reports whether moving from one status to another is allowed.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions leave this status.
func (s RequestStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether the status is one the state machine knows about.
func (s RequestStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// GeoPoint is a longitude/latitude pair, stored in that order.
type GeoPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

type Location struct {
	PlaceID     string   `json:"place_id"`
	Address     string   `json:"address"`
	Coordinates GeoPoint `json:"coordinates"`
	Area        string   `json:"area,omitempty"`
	SubArea     string   `json:"sub_area,omitempty"`
	City        string   `json:"city"`
	PostCode    string   `json:"post_code,omitempty"`
}

type OrganizationRequest struct {
	ID                  int32         `json:"id"`
	OrganizationName    string        `json:"organization_name"`
	Facilities          []int32       `json:"facilities"`
	Location            Location      `json:"location"`
	ContactPhone        string        `json:"contact_phone"`
	OwnerEmail          string        `json:"owner_email"`
	OrgContactPhone     string        `json:"org_contact_phone"`
	OrgContactEmail     string        `json:"org_contact_email"`
	RequesterID         int32         `json:"requester_id"`
	Status              RequestStatus `json:"status"`
	ProcessingAdminID   *int32        `json:"processing_admin_id,omitempty"`
	ProcessingStartedAt *time.Time    `json:"processing_started_at,omitempty"`
	OrganizationID      *int32        `json:"organization_id,omitempty"`
	AdminNotes          string        `json:"admin_notes,omitempty"`
	RequestNotes        string        `json:"request_notes,omitempty"`
	Images              []string      `json:"images"`
	CreatedOn           time.Time     `json:"created_on"`
	UpdatedOn           time.Time     `json:"updated_on"`
}
