package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the account view the campaign checks need: how long ago the
// user registered and whether the account is usable.
type User struct {
	ID               uuid.UUID `json:"id" db:"id"`
	FullName         string    `json:"full_name" db:"full_name"`
	RegistrationDate time.Time `json:"registration_date" db:"registration_date"`
	IsActive         bool      `json:"is_active" db:"is_active"`
}

// DaysSinceRegistration returns full days elapsed since the account was
// created, as seen at the given instant.
func (u *User) DaysSinceRegistration(now time.Time) int {
	return int(now.Sub(u.RegistrationDate).Hours() / 24)
}
