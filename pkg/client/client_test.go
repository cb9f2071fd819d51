package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type seen struct {
	method, path, query, auth, tenant string
	body                              map[string]any
}

func newServer(t *testing.T, status int, reply string, got *seen) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method, got.path, got.query = r.Method, r.URL.EscapedPath(), r.URL.RawQuery
		got.auth, got.tenant = r.Header.Get("Authorization"), r.Header.Get("X-Tenant-ID")
		got.body = nil
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			json.Unmarshal(b, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListSendsQueryAndHeaders(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusOK, `{"page":2,"pageSize":10,"total":11,"totalPages":2,"records":[{"id":"11","values":{"title":"x"}}]}`, &got)
	c := New(srv.URL+"/", WithToken("tok"), WithTenant("acme"))

	page, err := c.List(context.Background(), "posts", ListOptions{Page: 2, PageSize: 10, Search: "x", SortBy: "title", SortOrder: "desc", Filters: map[string]string{"since": "2024-01-01", "a": "1"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := seen{
		method: http.MethodGet,
		path:   "/v1/entities/posts/records",
		query:  "filter=a%3A1&filter=since%3A2024-01-01&page=2&page_size=10&search=x&sort_by=title&sort_order=desc",
		auth:   "Bearer tok",
		tenant: "acme",
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(seen{})); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
	if page.Total != 11 || page.Records[0].Values["title"] != "x" {
		t.Fatalf("page = %+v", page)
	}
}

func TestCreateAndDeleteMany(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusCreated, `{"id":"1","values":{"title":"a"}}`, &got)
	c := New(srv.URL)
	rec, err := c.Create(context.Background(), "posts", map[string]string{"title": "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID != "1" || got.method != http.MethodPost || got.body["title"] != "a" {
		t.Fatalf("rec %+v request %+v", rec, got)
	}
	if got.auth != "" || got.tenant != "" {
		t.Fatalf("unexpected headers %+v", got)
	}

	srv = newServer(t, http.StatusOK, `{"deleted":["1"],"failed":{"2":"not found"}}`, &got)
	res, err := New(srv.URL).DeleteMany(context.Background(), "posts", []string{"1", "2"})
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if got.path != "/v1/entities/posts/records/delete" || res.Failed["2"] != "not found" {
		t.Fatalf("res %+v request %+v", res, got)
	}
}

func TestErrorCarriesValidationDetails(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusUnprocessableEntity, `{"title":"Unprocessable Entity","detail":"validation failed","errors":[{"location":"body.title","message":"cannot be empty"}]}`, &got)
	_, err := New(srv.URL).Create(context.Background(), "posts", map[string]string{})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || len(apiErr.Details) != 1 {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if want := "422: validation failed (body.title: cannot be empty)"; apiErr.Error() != want {
		t.Fatalf("Error() = %q, want %q", apiErr.Error(), want)
	}
}

func TestGetEscapesID(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusNotFound, `{"title":"Not Found"}`, &got)
	_, err := New(srv.URL).Get(context.Background(), "posts", "a/b")
	if got.path != "/v1/entities/posts/records/a%2Fb" {
		t.Fatalf("path = %s", got.path)
	}
	if err == nil || err.Error() != "404: Not Found" {
		t.Fatalf("err = %v", err)
	}
}

func TestExport(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusOK, "Id,Title\n1,a\n", &got)
	var buf bytes.Buffer
	if err := New(srv.URL).Export(context.Background(), "posts", ListOptions{Page: 3, Search: "a"}, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if buf.String() != "Id,Title\n1,a\n" || got.query != "search=a" {
		t.Fatalf("body %q query %q", buf.String(), got.query)
	}
}

func TestLogin(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusOK, `{"access_token":"jwt","expires_at":"2030-01-01T00:00:00Z"}`, &got)
	tok, err := New(srv.URL).Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok.AccessToken != "jwt" || got.path != "/v1/auth/login" || got.body["username"] != "alice" {
		t.Fatalf("token %+v request %+v", tok, got)
	}
}
