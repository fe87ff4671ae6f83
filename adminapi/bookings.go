package adminapi

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/pool-admin/apiclient"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAssigned  BookingStatus = "assigned"
	BookingScheduled BookingStatus = "scheduled"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingAssigned, BookingScheduled, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

type WaterBody struct {
	Type     string   `json:"type"` // pool or spa
	Size     float64  `json:"size"`
	Features []string `json:"features"`
}

type Booking struct {
	ID                 string        `json:"id"`
	CustomerID         string        `json:"customerId"`
	CustomerName       string        `json:"customerName"`
	Email              string        `json:"email"`
	Phone              string        `json:"phone,omitempty"`
	Address            string        `json:"address"`
	City               string        `json:"city"`
	State              string        `json:"state"`
	ZipCode            string        `json:"zipCode"`
	CurrentServiceDay  string        `json:"currentServiceDay,omitempty"`
	PreferredDays      []string      `json:"preferredDays"`
	HasDogs            bool          `json:"hasDogs"`
	DogDetails         string        `json:"dogDetails,omitempty"`
	SpecificConcerns   string        `json:"specificConcerns,omitempty"`
	AdditionalComments string        `json:"additionalComments,omitempty"`
	GateCode           string        `json:"gateCode,omitempty"`
	AccessNotes        string        `json:"accessNotes,omitempty"`
	WaterBodies        []WaterBody   `json:"waterBodies"`
	Status             BookingStatus `json:"status"`
	AssignedTechID     string        `json:"assignedTechId,omitempty"`
	AssignedAt         *time.Time    `json:"assignedAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

var zipCodePattern = regexp.MustCompile(`^\d{5}$`)

func (b *Booking) Validate() error {
	if _, err := uuid.Parse(b.ID); err != nil {
		return fmt.Errorf("booking id %q is not a uuid", b.ID)
	}
	if _, err := uuid.Parse(b.CustomerID); err != nil {
		return fmt.Errorf("booking %s customer id %q is not a uuid", b.ID, b.CustomerID)
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		return fmt.Errorf("booking %s email %q is invalid", b.ID, b.Email)
	}
	if len(b.State) != 2 {
		return fmt.Errorf("booking %s state %q must be a two letter code", b.ID, b.State)
	}
	if !zipCodePattern.MatchString(b.ZipCode) {
		return fmt.Errorf("booking %s zip code %q must be five digits", b.ID, b.ZipCode)
	}
	if !b.Status.Valid() {
		return fmt.Errorf("booking %s status %q is unknown", b.ID, b.Status)
	}
	if b.PreferredDays == nil || b.WaterBodies == nil {
		return fmt.Errorf("booking %s is missing preferred days or water bodies", b.ID)
	}
	for _, wb := range b.WaterBodies {
		if wb.Type != "pool" && wb.Type != "spa" {
			return fmt.Errorf("booking %s water body type %q is unknown", b.ID, wb.Type)
		}
	}
	if b.AssignedTechID != "" {
		if _, err := uuid.Parse(b.AssignedTechID); err != nil {
			return fmt.Errorf("booking %s technician id %q is not a uuid", b.ID, b.AssignedTechID)
		}
	}
	return nil
}

type BookingList struct {
	Bookings []Booking `json:"bookings"`
	Page
}

func (l *BookingList) Validate() error {
	if l.Bookings == nil {
		return fmt.Errorf("bookings are missing")
	}
	for i := range l.Bookings {
		if err := l.Bookings[i].Validate(); err != nil {
			return err
		}
	}
	return l.Page.validate()
}

const (
	DefaultBookingsLimit = 20
	MaxBookingsLimit     = 100
)

type BookingFilter struct {
	Status       BookingStatus
	HasDogsOnly  bool
	From         time.Time
	To           time.Time
	TechnicianID string
	Search       string
	Page         int
	Limit        int
}

func (f BookingFilter) query() (url.Values, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("unknown booking status %q", f.Status)
	}
	if f.TechnicianID != "" {
		if _, err := uuid.Parse(f.TechnicianID); err != nil {
			return nil, fmt.Errorf("technician id %q is not a uuid", f.TechnicianID)
		}
	}
	if f.Limit > MaxBookingsLimit {
		return nil, fmt.Errorf("limit %d exceeds %d", f.Limit, MaxBookingsLimit)
	}
	page, limit := f.Page, f.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultBookingsLimit
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.HasDogsOnly {
		q.Set("hasDogsOnly", "true")
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	if f.TechnicianID != "" {
		q.Set("technicianId", f.TechnicianID)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q, nil
}

// Assignment schedules a booking with a technician.
type Assignment struct {
	TechnicianID  string    `json:"technicianId"`
	ScheduledDate time.Time `json:"scheduledDate"`
	Notes         string    `json:"notes,omitempty"`
}

func (c *Client) ListBookings(ctx context.Context, filter BookingFilter) (*BookingList, error) {
	q, err := filter.query()
	if err != nil {
		return nil, fmt.Errorf("[Client.ListBookings] %w", err)
	}
	list, err := apiclient.Get[BookingList](ctx, c.api, BookingsPath, q)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Int("count", len(list.Bookings)).Msg("fetched bookings")
	return &list, nil
}

func (c *Client) GetBooking(ctx context.Context, id string) (*Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("[Client.GetBooking] booking id %q is not a uuid", id)
	}
	booking, err := apiclient.Get[Booking](ctx, c.api, pathID(BookingsPath, id), nil)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) AssignTechnician(ctx context.Context, bookingID string, a Assignment) (*Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return nil, fmt.Errorf("[Client.AssignTechnician] booking id %q is not a uuid", bookingID)
	}
	if _, err := uuid.Parse(a.TechnicianID); err != nil {
		return nil, fmt.Errorf("[Client.AssignTechnician] technician id %q is not a uuid", a.TechnicianID)
	}
	booking, err := apiclient.Put[Booking](ctx, c.api, pathID(BookingsPath, bookingID)+"/assign", a)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("booking_id", bookingID).Str("technician_id", a.TechnicianID).Msg("assigned booking to technician")
	return &booking, nil
}
