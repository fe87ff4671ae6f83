package devbackend

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/pool-admin/adminapi"
	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/users"
)

// Seeded operator for local development.
const (
	SeedUserID       = "123e4567-e89b-12d3-a456-426614174000"
	SeedUserEmail    = "csm@claritypool.com"
	SeedUserPassword = "csm123"
)

func seedUser(now time.Time) (*users.User, error) {
	hash, err := users.HashPassword(SeedUserPassword)
	if err != nil {
		return nil, apierrors.Wrapf(err, "[seedUser] hash password")
	}
	return &users.User{
		ID:           SeedUserID,
		Email:        SeedUserEmail,
		FirstName:    "Sarah",
		LastName:     "CSM",
		Role:         users.RoleCSM,
		Permissions:  []string{users.PermBookingsRead, users.PermBookingsWrite, users.PermTechniciansRead},
		CreatedAt:    now,
		PasswordHash: hash,
	}, nil
}

// fixtures is the in-memory customer and booking data served by the
// development backend.
type fixtures struct {
	mu        sync.RWMutex
	customers []adminapi.Customer
	bookings  []adminapi.Booking
}

func newFixtures(now time.Time) *fixtures {
	return &fixtures{
		customers: []adminapi.Customer{
			{
				ID: 1, FirstName: "John", LastName: "Smith", Email: "john.smith@example.com",
				Phone: "555-0123", Address: "123 Pool Lane", City: "Miami", State: "FL", Zip: "33101",
				PoolDetails: &adminapi.PoolDetails{PoolType: "salt", PoolSize: "15000", Equipment: []string{"salt-system", "heater"}},
				CreatedAt:   now, UpdatedAt: now,
			},
			{
				ID: 2, FirstName: "Maria", LastName: "Garcia", Email: "maria.garcia@example.com",
				Address: "48 Coral Way", City: "Tampa", State: "FL", Zip: "33602",
				PoolDetails: &adminapi.PoolDetails{PoolType: "chlorine", PoolSize: "12000"},
				CreatedAt:   now, UpdatedAt: now,
			},
			{
				ID: 3, FirstName: "David", LastName: "Chen", Email: "david.chen@example.com",
				Address: "9 Bayview Dr", City: "Orlando", State: "FL", Zip: "32801",
				CreatedAt: now, UpdatedAt: now,
			},
		},
		bookings: []adminapi.Booking{
			{
				ID:                "123e4567-e89b-12d3-a456-426614174000",
				CustomerID:        "123e4567-e89b-12d3-a456-426614174001",
				CustomerName:      "John Smith",
				Email:             "john.smith@example.com",
				Phone:             "555-0123",
				Address:           "123 Pool Lane",
				City:              "Miami",
				State:             "FL",
				ZipCode:           "33101",
				CurrentServiceDay: "Wednesday",
				PreferredDays:     []string{"Wednesday", "Thursday"},
				HasDogs:           true,
				DogDetails:        "Two friendly golden retrievers",
				SpecificConcerns:  "Green pool, needs immediate attention",
				WaterBodies:       []adminapi.WaterBody{{Type: "pool", Size: 15000, Features: []string{"salt-system", "heater"}}},
				Status:            adminapi.BookingPending,
				CreatedAt:         now,
				UpdatedAt:         now,
			},
			{
				ID:            "7c9e6679-7425-40de-944b-e07fc1f90ae7",
				CustomerID:    "7c9e6679-7425-40de-944b-e07fc1f90ae8",
				CustomerName:  "Maria Garcia",
				Email:         "maria.garcia@example.com",
				Address:       "48 Coral Way",
				City:          "Tampa",
				State:         "FL",
				ZipCode:       "33602",
				PreferredDays: []string{"Monday"},
				WaterBodies:   []adminapi.WaterBody{{Type: "spa", Size: 800, Features: []string{}}},
				Status:        adminapi.BookingPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			},
		},
	}
}

func (f *fixtures) listCustomers(offset, limit int) ([]adminapi.Customer, int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return page(f.customers, offset, limit), len(f.customers)
}

func (f *fixtures) searchCustomers(query string, limit int) []adminapi.Customer {
	f.mu.RLock()
	defer f.mu.RUnlock()

	query = strings.ToLower(query)
	var found []adminapi.Customer
	for _, c := range f.customers {
		if strings.Contains(strings.ToLower(c.FullName()+" "+c.Email), query) {
			found = append(found, c)
		}
	}
	return page(found, 0, limit)
}

func (f *fixtures) customer(id int) (adminapi.Customer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return adminapi.Customer{}, apierrors.ErrNotFound
}

func (f *fixtures) listBookings(status adminapi.BookingStatus, hasDogsOnly bool, search string) []adminapi.Booking {
	f.mu.RLock()
	defer f.mu.RUnlock()

	search = strings.ToLower(search)
	found := []adminapi.Booking{}
	for _, b := range f.bookings {
		if status != "" && b.Status != status {
			continue
		}
		if hasDogsOnly && !b.HasDogs {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.CustomerName+" "+b.Address), search) {
			continue
		}
		found = append(found, cloneBooking(b))
	}
	return found
}

func (f *fixtures) booking(id string) (adminapi.Booking, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, b := range f.bookings {
		if b.ID == id {
			return cloneBooking(b), nil
		}
	}
	return adminapi.Booking{}, apierrors.ErrNotFound
}

func (f *fixtures) assign(id string, a adminapi.Assignment, now time.Time) (adminapi.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID != id {
			continue
		}
		f.bookings[i].Status = adminapi.BookingAssigned
		f.bookings[i].AssignedTechID = a.TechnicianID
		f.bookings[i].AssignedAt = &now
		f.bookings[i].UpdatedAt = now
		return cloneBooking(f.bookings[i]), nil
	}
	return adminapi.Booking{}, apierrors.ErrNotFound
}

func cloneBooking(b adminapi.Booking) adminapi.Booking {
	b.PreferredDays = slices.Clone(b.PreferredDays)
	b.WaterBodies = slices.Clone(b.WaterBodies)
	if b.AssignedAt != nil {
		at := *b.AssignedAt
		b.AssignedAt = &at
	}
	return b
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return slices.Clone(items[offset:end])
}
