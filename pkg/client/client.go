package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Client provides REST access to the admin API.
type Client struct {
	base string
	http *resty.Client
}

type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(tok string) Option {
	return func(c *Client) {
		if tok != "" {
			c.http.SetAuthToken(tok)
		}
	}
}

// WithTenant sends the tenant header with every request.
func WithTenant(tenant string) Option {
	return func(c *Client) {
		if tenant != "" {
			c.http.SetHeader("X-Tenant-ID", tenant)
		}
	}
}

// New returns a Client for the given base URL.
func New(base string, opts ...Option) *Client {
	c := &Client{base: strings.TrimRight(base, "/"), http: resty.New()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Error is a non 2xx answer of the server.
type Error struct {
	Status  int
	Title   string `json:"title"`
	Detail  string `json:"detail"`
	Details []struct {
		Location string `json:"location"`
		Message  string `json:"message"`
	} `json:"errors"`
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Details) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, msg)
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Location + ": " + d.Message
	}
	return fmt.Sprintf("%d: %s (%s)", e.Status, msg, strings.Join(parts, "; "))
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&Error{})
}

func (c *Client) url(parts ...string) string {
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.base + "/v1/" + strings.Join(parts, "/")
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	e, ok := resp.Error().(*Error)
	if !ok || e == nil {
		e = &Error{}
	}
	e.Status = resp.StatusCode()
	return e
}

func listQuery(o ListOptions) url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.SortBy != "" {
		q.Set("sort_by", o.SortBy)
	}
	if o.SortOrder != "" {
		q.Set("sort_order", o.SortOrder)
	}
	names := make([]string, 0, len(o.Filters))
	for n := range o.Filters {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		q.Add("filter", n+":"+o.Filters[n])
	}
	return q
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var out Token
	resp, err := c.request(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post(c.url("auth", "login"))
	return out, check(resp, err)
}

// Entities lists the entities visible to the caller.
func (c *Client) Entities(ctx context.Context) ([]Entity, error) {
	var out []Entity
	resp, err := c.request(ctx).SetResult(&out).Get(c.url("entities"))
	return out, check(resp, err)
}

// List returns one page of records.
func (c *Client) List(ctx context.Context, entity string, o ListOptions) (*Page, error) {
	var out Page
	resp, err := c.request(ctx).SetQueryParamsFromValues(listQuery(o)).SetResult(&out).Get(c.url("entities", entity, "records"))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one record.
func (c *Client) Get(ctx context.Context, entity, id string) (*Record, error) {
	var out Record
	resp, err := c.request(ctx).SetResult(&out).Get(c.url("entities", entity, "records", id))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create inserts a record from raw values.
func (c *Client) Create(ctx context.Context, entity string, values map[string]string) (*Record, error) {
	var out Record
	resp, err := c.request(ctx).SetBody(values).SetResult(&out).Post(c.url("entities", entity, "records"))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the editable values of a record.
func (c *Client) Update(ctx context.Context, entity, id string, values map[string]string) (*Record, error) {
	var out Record
	resp, err := c.request(ctx).SetBody(values).SetResult(&out).Put(c.url("entities", entity, "records", id))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, entity, id string) error {
	return check(c.request(ctx).Delete(c.url("entities", entity, "records", id)))
}

// DeleteMany removes several records. Failed ids are reported in the result
// without an error.
func (c *Client) DeleteMany(ctx context.Context, entity string, ids []string) (DeleteManyResult, error) {
	var out DeleteManyResult
	resp, err := c.request(ctx).SetBody(map[string][]string{"ids": ids}).SetResult(&out).Post(c.url("entities", entity, "records", "delete"))
	return out, check(resp, err)
}

// Export streams the CSV export of the matching records to w.
func (c *Client) Export(ctx context.Context, entity string, o ListOptions, w io.Writer) error {
	o.Page, o.PageSize = 0, 0
	resp, err := c.request(ctx).SetDoNotParseResponse(true).SetQueryParamsFromValues(listQuery(o)).Get(c.url("entities", entity, "export"))
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		b, _ := io.ReadAll(body)
		return &Error{Status: resp.StatusCode(), Detail: strings.TrimSpace(string(b))}
	}
	_, err = io.Copy(w, body)
	return err
}
