package model

import (
	"github.com/google/uuid"
)

// User is the account identity that owns records. It is managed by the
// account service and only read here.
type User struct {
	ID       uuid.UUID `json:"id" db:"id"`
	FullName string    `json:"full_name" db:"full_name"`
	Email    string    `json:"email" db:"email"`
}
