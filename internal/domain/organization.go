package domain

import "time"

type Organization struct {
	ID              int32     `json:"id"`
	Name            string    `json:"name"`
	Facilities      []int32   `json:"facilities"`
	Location        Location  `json:"location"`
	OrgContactPhone string    `json:"org_contact_phone"`
	OrgContactEmail string    `json:"org_contact_email"`
	OwnerID         int32     `json:"owner_id"`
	CreatedOn       time.Time `json:"created_on"`
	UpdatedOn       time.Time `json:"updated_on"`
}
