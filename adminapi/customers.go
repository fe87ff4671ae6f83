package adminapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/pool-admin/apiclient"
)

type PoolDetails struct {
	PoolType  string   `json:"poolType,omitempty"`
	PoolSize  string   `json:"poolSize,omitempty"`
	Equipment []string `json:"equipment,omitempty"`
}

type Customer struct {
	ID          int          `json:"id"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone,omitempty"`
	Address     string       `json:"address,omitempty"`
	City        string       `json:"city,omitempty"`
	State       string       `json:"state,omitempty"`
	Zip         string       `json:"zip,omitempty"`
	PoolDetails *PoolDetails `json:"poolDetails,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (c *Customer) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("customer id must be positive, got %d", c.ID)
	}
	if c.Email == "" {
		return fmt.Errorf("customer %d has no email", c.ID)
	}
	return nil
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type CustomerList struct {
	Customers []Customer `json:"customers"`
	Page
}

func (l *CustomerList) Validate() error {
	if l.Customers == nil {
		return fmt.Errorf("customers are missing")
	}
	for i := range l.Customers {
		if err := l.Customers[i].Validate(); err != nil {
			return err
		}
	}
	return l.Page.validate()
}

// ListOptions bounds a list call. Zero values are left to the backend.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	setInt(q, "limit", o.Limit)
	setInt(q, "offset", o.Offset)
	return q
}

func (c *Client) ListCustomers(ctx context.Context, opts ListOptions) (*CustomerList, error) {
	list, err := apiclient.Get[CustomerList](ctx, c.api, CustomersPath, opts.query())
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) SearchCustomers(ctx context.Context, query string, limit int) (*CustomerList, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("[Client.SearchCustomers] query is required")
	}
	q := url.Values{"query": {query}}
	setInt(q, "limit", limit)
	list, err := apiclient.Get[CustomerList](ctx, c.api, CustomerSearchPath, q)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetCustomer(ctx context.Context, id int) (*Customer, error) {
	customer, err := apiclient.Get[Customer](ctx, c.api, pathID(CustomersPath, id), nil)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
