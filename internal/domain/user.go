package domain

import "time"

type User struct {
	ID          int32     `json:"id"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}
