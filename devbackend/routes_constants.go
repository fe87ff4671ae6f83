package devbackend

import (
	"github.com/jrsteele09/pool-admin/adminapi"
	"github.com/jrsteele09/pool-admin/authapi"
)

// Route patterns served by the development backend
const (
	// Auth
	RouteSession     = "GET " + adminapi.SessionPath
	RouteAuthLogin   = "POST " + authapi.LoginPath
	RouteAuthRefresh = "POST " + authapi.RefreshPath
	RouteAuthLogout  = "POST " + authapi.LogoutPath

	// Customers
	RouteCustomers      = "GET " + adminapi.CustomersPath
	RouteCustomerSearch = "GET " + adminapi.CustomerSearchPath
	RouteCustomer       = "GET " + adminapi.CustomersPath + "/{id}"

	// Bookings
	RouteBookings      = "GET " + adminapi.BookingsPath
	RouteBooking       = "GET " + adminapi.BookingsPath + "/{id}"
	RouteBookingAssign = "PUT " + adminapi.BookingsPath + "/{id}/assign"

	// Reports
	RouteReportAnalytics = "GET " + adminapi.ReportAnalyticsPath

	// Realtime namespaces
	RouteRealtimeBookings = "GET /bookings"
)

// Realtime events pushed on the bookings namespace
const (
	EventBookingAssigned = "booking:assigned"
)
