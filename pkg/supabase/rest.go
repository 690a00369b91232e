package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Query builds one PostgREST-style table request. Filters apply to Execute, Update and Delete.
type Query struct {
	client *Client
	table  string
	params url.Values
}

// From starts a query against a table. Calls carry the signed-in user's access token when
// there is one, so row-level security sees the right identity.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, params: url.Values{}}
}

// Select sets the column list, including embedded relations such as "*,courses(id,nome)".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Set("order", column+"."+dir)
	return q
}

// Limit caps the number of rows returned.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Execute runs the select and decodes the rows into dest (a pointer to a slice).
func (q *Query) Execute(ctx context.Context, dest interface{}) error {
	return q.send(ctx, http.MethodGet, nil, false, dest)
}

// Insert creates rows and decodes the stored representation into dest.
func (q *Query) Insert(ctx context.Context, values interface{}, dest interface{}) error {
	return q.send(ctx, http.MethodPost, values, true, dest)
}

// Update patches the filtered rows and decodes the stored representation into dest.
func (q *Query) Update(ctx context.Context, values interface{}, dest interface{}) error {
	if !q.filtered() {
		return fmt.Errorf("supabase: update on %s without a filter", q.table)
	}
	return q.send(ctx, http.MethodPatch, values, true, dest)
}

// Delete removes the filtered rows.
func (q *Query) Delete(ctx context.Context) error {
	if !q.filtered() {
		return fmt.Errorf("supabase: delete on %s without a filter", q.table)
	}
	return q.send(ctx, http.MethodDelete, nil, false, nil)
}

func (q *Query) filtered() bool {
	for key := range q.params {
		switch key {
		case "select", "order", "limit":
		default:
			return true
		}
	}
	return false
}

func (q *Query) send(ctx context.Context, method string, body interface{}, representation bool, dest interface{}) error {
	req := request{
		method:      method,
		path:        "/rest/v1/" + q.table,
		query:       q.params,
		body:        body,
		accessToken: q.client.accessToken(),
	}
	if representation {
		req.headers = map[string]string{"Prefer": "return=representation"}
	}
	return q.client.do(ctx, req, dest)
}

func (c *Client) accessToken() string {
	if c.Auth == nil {
		return ""
	}
	return c.Auth.AccessToken()
}
