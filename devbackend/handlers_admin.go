package devbackend

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/pool-admin/adminapi"
)

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func totalPages(total, limit int) int {
	if limit <= 0 || total == 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	customers, total := s.fixtures.listCustomers(offset, limit)
	writeJSON(w, http.StatusOK, adminapi.CustomerList{
		Customers: customers,
		Page: adminapi.Page{
			Total:      total,
			Page:       offset/max(limit, 1) + 1,
			TotalPages: totalPages(total, limit),
		},
	})
}

func (s *Server) handleSearchCustomers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusUnprocessableEntity, "query is required")
		return
	}
	customers := s.fixtures.searchCustomers(query, queryInt(r, "limit", 20))
	writeJSON(w, http.StatusOK, adminapi.CustomerList{
		Customers: customers,
		Page:      adminapi.Page{Total: len(customers), Page: 1, TotalPages: 1},
	})
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "customer id must be numeric")
		return
	}
	c, err := s.fixtures.customer(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := adminapi.BookingStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "unknown booking status")
		return
	}
	pageNum := max(queryInt(r, "page", 1), 1)
	limit := queryInt(r, "limit", adminapi.DefaultBookingsLimit)
	if limit == 0 || limit > adminapi.MaxBookingsLimit {
		writeError(w, http.StatusUnprocessableEntity, "limit must be between 1 and 100")
		return
	}

	all := s.fixtures.listBookings(status, q.Get("hasDogsOnly") == "true", q.Get("search"))
	writeJSON(w, http.StatusOK, adminapi.BookingList{
		Bookings: page(all, (pageNum-1)*limit, limit),
		Page:     adminapi.Page{Total: len(all), Page: pageNum, TotalPages: totalPages(len(all), limit)},
	})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.fixtures.booking(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Booking not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleAssignBooking(w http.ResponseWriter, r *http.Request) {
	var a adminapi.Assignment
	if err := decodeBody(w, r, &a); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := uuid.Parse(a.TechnicianID); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "technicianId must be a uuid")
		return
	}

	b, err := s.fixtures.assign(r.PathValue("id"), a, s.now())
	if err != nil {
		writeError(w, http.StatusNotFound, "Booking not found")
		return
	}
	s.hub.publish(EventBookingAssigned, b)
	s.log.Info().Str("booking_id", b.ID).Str("technician_id", a.TechnicianID).Msg("booking assigned")
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleReportAnalytics(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", adminapi.DefaultAnalyticsDays)
	days = min(max(days, 1), 365)
	_, customers := s.fixtures.listCustomers(0, 0)
	byDay := make([]adminapi.DailyCount, 0, days)
	sent := 0
	start := s.now().AddDate(0, 0, -days+1)
	for i := range days {
		count := customers // one report per customer per day
		sent += count
		byDay = append(byDay, adminapi.DailyCount{Date: start.AddDate(0, 0, i).Format("2006-01-02"), Count: count})
	}
	opened := sent * 3 / 5
	openRate := 0.0
	if sent > 0 {
		openRate = float64(opened) / float64(sent)
	}
	writeJSON(w, http.StatusOK, adminapi.ReportAnalytics{
		TotalSent:       sent,
		TotalOpened:     opened,
		OpenRate:        openRate,
		AvgHealthScore:  82.5,
		UniqueCustomers: customers,
		DeliveryRate:    1,
		ByDay:           byDay,
	})
}
