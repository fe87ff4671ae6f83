package adminapi

// Backend endpoint paths
const (
	SessionPath = "/session"

	CustomersPath      = "/api/admin/customers"
	CustomerSearchPath = "/api/admin/customers/search"

	ReportConfigPath    = "/api/admin/reports/weekly/config"
	ReportHistoryPath   = "/api/admin/reports/weekly/history"
	ReportAnalyticsPath = "/api/admin/reports/weekly/analytics"
	ReportTestPath      = "/api/admin/reports/weekly/test"
	ReportPreviewPath   = "/api/admin/reports/weekly/preview"
	ReportBulkSendPath  = "/api/admin/reports/weekly/bulk-send"
	ReportPrefsPath     = "/api/admin/reports/preferences"

	BookingsPath = "/api/bookings"
)
