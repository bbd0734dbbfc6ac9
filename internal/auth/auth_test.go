package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nanacaring/cmsportal/internal/api"
)

func TestChain(t *testing.T) {
	errDown := errors.New("backend down")
	ok := &api.LoginResponse{Token: "t1"}

	unknown := Func(func(context.Context, api.Credentials) (*api.LoginResponse, error) {
		return nil, ErrUnknownUser
	})
	fails := Func(func(context.Context, api.Credentials) (*api.LoginResponse, error) {
		return nil, errDown
	})
	succeeds := Func(func(context.Context, api.Credentials) (*api.LoginResponse, error) {
		return ok, nil
	})

	tests := []struct {
		name    string
		chain   Chain
		want    *api.LoginResponse
		wantErr error
	}{
		{"falls through unknown", Chain{unknown, succeeds}, ok, nil},
		{"stops on error", Chain{fails, succeeds}, nil, errDown},
		{"skips nil", Chain{nil, succeeds}, ok, nil},
		{"exhausted", Chain{unknown, unknown}, nil, ErrInvalidCredentials},
		{"empty", Chain{}, nil, ErrInvalidCredentials},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.chain.Authenticate(context.Background(), api.Credentials{Username: "a"})
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected error %v, got %v", tc.wantErr, err)
			}
			if got != tc.want {
				t.Errorf("expected response %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSignerRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := Signer{Secret: []byte("secret"), TTL: time.Hour, Now: func() time.Time { return now }}

	token, expires, err := s.Sign(api.User{ID: 7, Username: "root", Role: api.RoleSuperadmin})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Errorf("expected expiry %v, got %v", now.Add(time.Hour), expires)
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "7" || claims.Role != api.RoleSuperadmin || claims.Username != "root" {
		t.Errorf("unexpected claims %+v", claims)
	}

	unverified, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}
	if !unverified.Expiry().Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, unverified.Expiry())
	}

	other := Signer{Secret: []byte("other"), Now: s.Now}
	if _, err := other.Verify(token); err == nil {
		t.Error("expected verification with wrong secret to fail")
	}

	later := Signer{Secret: s.Secret, Now: func() time.Time { return now.Add(2 * time.Hour) }}
	if _, err := later.Verify(token); err == nil {
		t.Error("expected expired token to fail")
	}
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	if _, err := ParseClaims("not-a-token"); err == nil {
		t.Error("expected error")
	}
}

func TestRemote(t *testing.T) {
	signer := Signer{Secret: []byte("backend"), TTL: time.Hour}
	token, expires, err := signer.Sign(api.User{ID: 1})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{"token":"`+token+`","user":{"id":1}}`)
	}))
	defer srv.Close()

	client, err := api.New(api.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}

	resp, err := Remote{Client: client}.Authenticate(context.Background(), api.Credentials{Username: "a", Password: "b"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if resp.User.ID != 1 {
		t.Errorf("expected user 1, got %d", resp.User.ID)
	}
	if !resp.ExpiresAt.Equal(expires) {
		t.Errorf("expected expiry from claims %v, got %v", expires, resp.ExpiresAt)
	}
}

func newSQLAdmins(t *testing.T) SQLAdmins {
	t.Helper()
	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "admins.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := SQLAdmins{DB: db}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	admins := newSQLAdmins(t)

	if err := admins.CreateAdmin(ctx, AdminUser{Username: "root", Email: "root@example.com", Role: "superadmin", IsActive: true}, "s3cret"); err != nil {
		t.Fatalf("CreateAdmin() error = %v", err)
	}
	if err := admins.CreateAdmin(ctx, AdminUser{Username: "old", Email: "old@example.com", Role: "admin"}, "s3cret"); err != nil {
		t.Fatalf("CreateAdmin() error = %v", err)
	}

	local := Local{Admins: admins, Signer: Signer{Secret: []byte("k")}}

	tests := []struct {
		name    string
		creds   api.Credentials
		wantErr error
	}{
		{"by username", api.Credentials{Username: "root", Password: "s3cret"}, nil},
		{"by email", api.Credentials{Username: "ROOT@example.com", Password: "s3cret"}, nil},
		{"bad password", api.Credentials{Username: "root", Password: "nope"}, ErrInvalidCredentials},
		{"inactive", api.Credentials{Username: "old", Password: "s3cret"}, ErrAccountDeactivated},
		{"unknown", api.Credentials{Username: "ghost", Password: "x"}, ErrUnknownUser},
		{"blank", api.Credentials{Username: "  "}, ErrUnknownUser},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := local.Authenticate(ctx, tc.creds)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				return
			}
			if resp.User.Username != "root" || resp.User.Role != api.RoleSuperadmin {
				t.Errorf("unexpected user %+v", resp.User)
			}
			if _, err := local.Signer.Verify(resp.Token); err != nil {
				t.Errorf("expected verifiable token, got %v", err)
			}
		})
	}
}
