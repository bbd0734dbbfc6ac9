package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nanacaring/cmsportal/internal/cache"
)

func newTestClient(t *testing.T, h http.HandlerFunc, c *cache.Cache) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := New(Options{BaseURL: srv.URL, Timeout: time.Second, Cache: c})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if creds.Username != "a" || creds.Password != "b" {
			t.Errorf("unexpected credentials %+v", creds)
		}
		io.WriteString(w, `{"token":"t1","user":{"id":1}}`)
	}, nil)

	resp, err := client.Login(context.Background(), Credentials{Username: "a", Password: "b"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token != "t1" || resp.User.ID != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"plain text", http.StatusUnauthorized, "Invalid credentials\n", "Invalid credentials"},
		{"json string", http.StatusUnauthorized, `"Invalid credentials"`, "Invalid credentials"},
		{"json message", http.StatusBadRequest, `{"message":"name is required"}`, "name is required"},
		{"json error", http.StatusForbidden, `{"error":"forbidden"}`, "forbidden"},
		{"empty body", http.StatusNotFound, "", "Not Found"},
		{"unknown json", http.StatusInternalServerError, `{"code":7}`, "Internal Server Error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}, nil)

			_, err := client.Login(context.Background(), Credentials{})
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Status != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, apiErr.Status)
			}
			if apiErr.Message != tc.want {
				t.Errorf("expected message %q, got %q", tc.want, apiErr.Message)
			}
			if !IsStatus(err, tc.status) {
				t.Errorf("IsStatus(%d) = false", tc.status)
			}
		})
	}
}

func TestListProductsFlexibleNumbers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer t1" {
			t.Errorf("expected bearer token, got %q", got)
		}
		io.WriteString(w, `[
			{"id":1,"name":"Tea","price":"12.50","stock":"7"},
			{"id":2,"name":"Rice","price":3,"stock":4.9},
			{"id":3,"name":"Soap","price":null,"stock":""}
		]`)
	}, nil)

	products, err := client.ListProducts(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}

	want := []struct {
		price FlexFloat
		stock FlexInt
	}{{12.5, 7}, {3, 4}, {0, 0}}
	for i, w := range want {
		if products[i].Price != w.price || products[i].Stock != w.stock {
			t.Errorf("product %d: got price=%v stock=%v, want %v %v", i, products[i].Price, products[i].Stock, w.price, w.stock)
		}
	}
}

func TestFlexIntRejectsGarbage(t *testing.T) {
	var v FlexInt
	if err := json.Unmarshal([]byte(`"abc"`), &v); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestCacheInvalidation(t *testing.T) {
	var gets atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gets.Add(1)
			io.WriteString(w, `[{"id":5,"name":"Tea"}]`)
		case http.MethodDelete:
			if r.URL.Path != "/products/5" {
				t.Errorf("unexpected delete path %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	}, cache.New(cache.Options{TTL: time.Minute}))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.ListProducts(ctx, "t1"); err != nil {
			t.Fatalf("ListProducts() error = %v", err)
		}
	}
	if gets.Load() != 1 {
		t.Fatalf("expected second list to be cached, got %d requests", gets.Load())
	}

	// A different token must not share the entry.
	if _, err := client.ListProducts(ctx, "t2"); err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if gets.Load() != 2 {
		t.Fatalf("expected per-token cache, got %d requests", gets.Load())
	}

	if err := client.DeleteProduct(ctx, "t1", 5); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}
	if _, err := client.ListProducts(ctx, "t1"); err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if gets.Load() != 3 {
		t.Errorf("expected delete to invalidate cache, got %d requests", gets.Load())
	}
}

func TestListTransactionsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("account_id"); got != "9" {
			t.Errorf("expected account_id=9, got %q", got)
		}
		if got := r.URL.Query().Get("type"); got != "debit" {
			t.Errorf("expected type=debit, got %q", got)
		}
		io.WriteString(w, `[{"id":1,"account_id":9,"amount":"-4.20","type":"debit"}]`)
	}, nil)

	txs, err := client.ListTransactions(context.Background(), "t", TransactionQuery{AccountID: 9, Type: "debit"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 1 || txs[0].Amount != -4.2 {
		t.Errorf("unexpected transactions %+v", txs)
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "/api"}); err == nil {
		t.Error("expected error for relative base url")
	}
}
