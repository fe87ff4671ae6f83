package adminapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/pool-admin/apiclient"
)

type ReportConfig struct {
	Enabled        bool   `json:"enabled"`
	DefaultDelay   int    `json:"defaultDelay"`
	IncludeCharts  bool   `json:"includeCharts"`
	AIProvider     string `json:"aiProvider"`
	WeatherEnabled bool   `json:"weatherEnabled"`
	DefaultFormat  string `json:"defaultFormat"`
	ScheduleCron   string `json:"scheduleCron"`
}

func (c *ReportConfig) Validate() error {
	if c.DefaultDelay < 0 {
		return fmt.Errorf("report delay must not be negative, got %d", c.DefaultDelay)
	}
	return nil
}

// ReportConfigUpdate carries a partial configuration change. Nil fields are
// left unchanged.
type ReportConfigUpdate struct {
	Enabled        *bool   `json:"enabled,omitempty"`
	DefaultDelay   *int    `json:"defaultDelay,omitempty"`
	IncludeCharts  *bool   `json:"includeCharts,omitempty"`
	AIProvider     *string `json:"aiProvider,omitempty"`
	WeatherEnabled *bool   `json:"weatherEnabled,omitempty"`
	DefaultFormat  *string `json:"defaultFormat,omitempty"`
	ScheduleCron   *string `json:"scheduleCron,omitempty"`
}

type ReportCustomer struct {
	ID          int          `json:"id"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Email       string       `json:"email"`
	Address     string       `json:"address,omitempty"`
	City        string       `json:"city,omitempty"`
	State       string       `json:"state,omitempty"`
	PoolDetails *PoolDetails `json:"poolDetails,omitempty"`
}

type ReportRecord struct {
	ID             int            `json:"id"`
	CustomerID     int            `json:"customerId"`
	JobID          int            `json:"jobId"`
	SentAt         time.Time      `json:"sentAt"`
	HealthScore    float64        `json:"healthScore"`
	ReportType     string         `json:"reportType"`
	Opened         bool           `json:"opened"`
	DeliveryStatus string         `json:"deliveryStatus,omitempty"`
	Customer       ReportCustomer `json:"customer"`
}

type ReportHistory struct {
	Reports []ReportRecord `json:"reports"`
	Page
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (h *ReportHistory) Validate() error {
	if h.Reports == nil {
		return fmt.Errorf("reports are missing")
	}
	return h.Page.validate()
}

// HistoryFilter narrows the report history. Zero values are omitted.
type HistoryFilter struct {
	StartDate  time.Time
	EndDate    time.Time
	CustomerID int
	Limit      int
	Offset     int
}

func (f HistoryFilter) query() url.Values {
	q := url.Values{}
	if !f.StartDate.IsZero() {
		q.Set("startDate", f.StartDate.Format(time.DateOnly))
	}
	if !f.EndDate.IsZero() {
		q.Set("endDate", f.EndDate.Format(time.DateOnly))
	}
	setInt(q, "customerId", f.CustomerID)
	setInt(q, "limit", f.Limit)
	setInt(q, "offset", f.Offset)
	return q
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ReportAnalytics struct {
	TotalSent       int          `json:"totalSent"`
	TotalOpened     int          `json:"totalOpened"`
	OpenRate        float64      `json:"openRate"`
	AvgHealthScore  float64      `json:"avgHealthScore"`
	UniqueCustomers int          `json:"uniqueCustomers"`
	DeliveryRate    float64      `json:"deliveryRate"`
	ByDay           []DailyCount `json:"byDay"`
}

func (a *ReportAnalytics) Validate() error {
	if a.TotalOpened > a.TotalSent {
		return fmt.Errorf("opened count %d exceeds sent count %d", a.TotalOpened, a.TotalSent)
	}
	return nil
}

type TestSendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   int    `json:"jobId,omitempty"`
}

type ReportPreview struct {
	HTML        string    `json:"html"`
	PreviewMode bool      `json:"previewMode"`
	GeneratedAt time.Time `json:"generatedAt"`
	CustomerID  int       `json:"customerId"`
}

type ReportPreferences struct {
	ID              int       `json:"id"`
	CustomerID      int       `json:"customerId"`
	Enabled         bool      `json:"enabled"`
	ReportDelay     int       `json:"reportDelay"`
	IncludeCharts   bool      `json:"includeCharts"`
	PreferredFormat string    `json:"preferredFormat"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type PreferencesUpdate struct {
	Enabled         *bool   `json:"enabled,omitempty"`
	ReportDelay     *int    `json:"reportDelay,omitempty"`
	IncludeCharts   *bool   `json:"includeCharts,omitempty"`
	PreferredFormat *string `json:"preferredFormat,omitempty"`
}

type BulkSendItem struct {
	CustomerID int    `json:"customerId"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	JobID      int    `json:"jobId,omitempty"`
}

type BulkSendResult struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Results    []BulkSendItem `json:"results"`
}

func (r *BulkSendResult) Validate() error {
	if r.Successful+r.Failed != r.Total {
		return fmt.Errorf("bulk result counts do not add up: %d + %d != %d", r.Successful, r.Failed, r.Total)
	}
	return nil
}

// DefaultAnalyticsDays is the analytics window used when none is given.
const DefaultAnalyticsDays = 30

func (c *Client) GetReportConfig(ctx context.Context) (*ReportConfig, error) {
	cfg, err := apiclient.Get[ReportConfig](ctx, c.api, ReportConfigPath, nil)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) UpdateReportConfig(ctx context.Context, update ReportConfigUpdate) (*ReportConfig, error) {
	cfg, err := apiclient.Put[ReportConfig](ctx, c.api, ReportConfigPath, update)
	if err != nil {
		return nil, err
	}
	c.log.Info().Msg("weekly report configuration updated")
	return &cfg, nil
}

func (c *Client) ReportHistory(ctx context.Context, filter HistoryFilter) (*ReportHistory, error) {
	history, err := apiclient.Get[ReportHistory](ctx, c.api, ReportHistoryPath, filter.query())
	if err != nil {
		return nil, err
	}
	return &history, nil
}

func (c *Client) ReportAnalytics(ctx context.Context, days int) (*ReportAnalytics, error) {
	if days <= 0 {
		days = DefaultAnalyticsDays
	}
	q := url.Values{"days": {strconv.Itoa(days)}}
	analytics, err := apiclient.Get[ReportAnalytics](ctx, c.api, ReportAnalyticsPath, q)
	if err != nil {
		return nil, err
	}
	return &analytics, nil
}

func (c *Client) SendTestReport(ctx context.Context, customerID int) (*TestSendResult, error) {
	res, err := apiclient.Post[TestSendResult](ctx, c.api, pathID(ReportTestPath, customerID), nil)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) PreviewReport(ctx context.Context, customerID int) (*ReportPreview, error) {
	preview, err := apiclient.Get[ReportPreview](ctx, c.api, pathID(ReportPreviewPath, customerID), nil)
	if err != nil {
		return nil, err
	}
	return &preview, nil
}

func (c *Client) GetReportPreferences(ctx context.Context, customerID int) (*ReportPreferences, error) {
	prefs, err := apiclient.Get[ReportPreferences](ctx, c.api, pathID(ReportPrefsPath, customerID), nil)
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (c *Client) UpdateReportPreferences(ctx context.Context, customerID int, update PreferencesUpdate) (*ReportPreferences, error) {
	prefs, err := apiclient.Put[ReportPreferences](ctx, c.api, pathID(ReportPrefsPath, customerID), update)
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// SendBulkReports queues the weekly report for every listed customer.
func (c *Client) SendBulkReports(ctx context.Context, customerIDs []int) (*BulkSendResult, error) {
	if len(customerIDs) == 0 {
		return nil, fmt.Errorf("[Client.SendBulkReports] at least one customer id is required")
	}
	body := struct {
		CustomerIDs []int `json:"customerIds"`
	}{customerIDs}
	res, err := apiclient.Post[BulkSendResult](ctx, c.api, ReportBulkSendPath, body)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("total", res.Total).Int("failed", res.Failed).Msg("bulk report send finished")
	return &res, nil
}
