package users

import (
	"fmt"
	"net/mail"
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is the dashboard role assigned to an operator
type Role string

const (
	RoleCSM         Role = "CSM"          // Customer success manager, triages bookings
	RoleAdmin       Role = "ADMIN"        // Full access including report configuration
	RoleTechManager Role = "TECH_MANAGER" // Manages technicians and assignments
)

// Permission strings granted by the backend
const (
	PermBookingsRead    = "bookings:read"
	PermBookingsWrite   = "bookings:write"
	PermTechniciansRead = "technicians:read"
	PermReportsRead     = "reports:read"
	PermReportsWrite    = "reports:write"
	PermCustomersRead   = "customers:read"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCSM, RoleAdmin, RoleTechManager:
		return true
	}
	return false
}

// User is the authenticated operator. Role and permissions are fixed for the
// lifetime of a session; callers receive copies.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"-"` // only populated by the development backend
}

// Validate rejects a user whose shape does not match what the dashboard needs.
func (u *User) Validate() error {
	if u == nil {
		return fmt.Errorf("user is missing")
	}
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("user email %q is invalid", u.Email)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("user role %q is not one of CSM, ADMIN, TECH_MANAGER", u.Role)
	}
	if u.Permissions == nil {
		return fmt.Errorf("user permissions are required")
	}
	return nil
}

// Clone returns a deep copy so the caller cannot mutate session identity.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Permissions = slices.Clone(u.Permissions)
	return &cp
}

func (u *User) HasPermission(permission string) bool {
	return slices.Contains(u.Permissions, permission)
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword reports whether password matches the user's stored hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
