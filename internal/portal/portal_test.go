package portal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nanacaring/cmsportal/internal/api"
	authn "github.com/nanacaring/cmsportal/internal/auth"
	"github.com/nanacaring/cmsportal/internal/config"
	"github.com/nanacaring/cmsportal/internal/live"
	"github.com/nanacaring/cmsportal/pkg/connect"
	"github.com/nanacaring/cmsportal/pkg/middleware"
	"github.com/nanacaring/cmsportal/pkg/pref"
)

type fakeAPI struct {
	mu       sync.Mutex
	products []api.Product
	deleted  []int64

	// gate, when set, holds ListProducts until it is closed.
	gate           chan struct{}
	accountsPanics bool
}

func (f *fakeAPI) ListProducts(context.Context, string) ([]api.Product, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Product(nil), f.products...), nil
}

func (f *fakeAPI) CreateProduct(_ context.Context, _ string, p api.Product) (*api.Product, error) {
	p.ID = 99
	return &p, nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, _ string, p api.Product) (*api.Product, error) {
	return &p, nil
}

func (f *fakeAPI) DeleteProduct(_ context.Context, _ string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) ListUsers(context.Context, string) ([]api.User, error) {
	return []api.User{{ID: 1, Username: "ada", Role: api.RoleAdmin}, {ID: 2, Username: "root", Role: api.RoleSuperadmin}}, nil
}

func (f *fakeAPI) CreateUser(_ context.Context, _ string, u api.NewUser) (*api.User, error) {
	return &api.User{ID: 3, Username: u.Username, Role: u.Role}, nil
}

func (f *fakeAPI) UpdateUser(_ context.Context, _ string, u api.User) (*api.User, error) {
	return &u, nil
}

func (f *fakeAPI) DeleteUser(context.Context, string, int64) error { return nil }

func (f *fakeAPI) ListAccounts(context.Context, string) ([]api.Account, error) {
	if f.accountsPanics {
		panic("accounts backend exploded")
	}
	return []api.Account{{ID: 10, Name: "Household", Balance: 12.5, Currency: "USD", Status: api.AccountActive}}, nil
}

func (f *fakeAPI) CreateAccount(_ context.Context, _ string, a api.Account) (*api.Account, error) {
	return &a, nil
}

func (f *fakeAPI) UpdateAccountStatus(_ context.Context, _ string, id int64, s api.AccountStatus) (*api.Account, error) {
	return &api.Account{ID: id, Name: "Household", Status: s}, nil
}

func (f *fakeAPI) ListTransactions(context.Context, string, api.TransactionQuery) ([]api.Transaction, error) {
	return nil, nil
}

var admin = api.User{ID: 1, Username: "ada", FullName: "Ada Lovelace", Role: api.RoleAdmin}

func loginAs(u api.User, expires time.Time) authn.Func {
	return func(_ context.Context, c api.Credentials) (*api.LoginResponse, error) {
		if c.Password != "secret" {
			return nil, authn.ErrInvalidCredentials
		}
		return &api.LoginResponse{Token: "tok", User: u, ExpiresAt: expires}, nil
	}
}

type fixture struct {
	portal *Server
	srv    *httptest.Server
	api    *fakeAPI
	kv     *pref.MemoryKV
	reg    *prometheus.Registry
	auth   authn.Func
}

func newFixture(t *testing.T, auth authn.Func) *fixture {
	t.Helper()
	f := &fixture{
		api:  &fakeAPI{products: []api.Product{{ID: 5, Name: "Tea", Price: 3.5, Stock: 1200, IsActive: true}}},
		kv:   pref.NewMemoryKV(),
		reg:  prometheus.NewRegistry(),
		auth: auth,
	}
	s, err := New(Options{
		Config:   &config.Config{Metrics: config.MetricsConfig{Enabled: true}},
		Auth:     auth,
		API:      f.api,
		Prefs:    f.kv,
		Metrics:  middleware.NewCollector(middleware.WithNamespace("test"), middleware.WithRegistry(f.reg)),
		Gatherer: f.reg,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.portal = s
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close(ctx)
		f.srv.Close()
	})
	return f
}

// client reads patches from a page and keeps the ones no wait has
// consumed yet.
type client struct {
	t    *testing.T
	conn *websocket.Conn
	buf  []live.Patch
}

func (f *fixture) dial(t *testing.T) *client {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return &client{t: t, conn: c}
}

func (c *client) read() []live.Patch {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg live.Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return msg.Patches
}

// waitFor returns the first html patch for target containing want. It and
// any older patches for target are consumed.
func (c *client) waitFor(target, want string) live.Patch {
	c.t.Helper()
	for {
		for i, p := range c.buf {
			if p.Target != target || !strings.Contains(p.HTML, want) {
				continue
			}
			kept := make([]live.Patch, 0, len(c.buf))
			for j, q := range c.buf {
				if j <= i && q.Target == target {
					continue
				}
				kept = append(kept, q)
			}
			c.buf = kept
			return p
		}
		c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg live.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.t.Fatalf("waiting for %q in #%s: %v", want, target, err)
		}
		c.buf = append(c.buf, msg.Patches...)
	}
}

func (c *client) send(f live.Frame) {
	c.t.Helper()
	if err := c.conn.WriteJSON(f); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *client) login(password string) {
	c.t.Helper()
	c.send(live.Frame{Event: live.EventSubmit, Target: idLoginForm, Values: map[string]string{"username": " ada ", "password": password}})
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRoutes(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))

	if code, body := get(t, f.srv.URL+"/healthz"); code != http.StatusOK || body != "ok" {
		t.Errorf("/healthz = %d %q", code, body)
	}

	code, body := get(t, f.srv.URL+"/")
	if code != http.StatusOK || !strings.HasPrefix(body, "<!DOCTYPE html>") {
		t.Fatalf("/ = %d", code)
	}
	for _, id := range []string{idLoginForm, idProductsBody, idNotifications, idThemeToggle, idTransactionFilter} {
		if !strings.Contains(body, `id="`+id+`"`) {
			t.Errorf("shell is missing #%s", id)
		}
	}

	if code, body := get(t, f.srv.URL+"/static/portal.js"); code != http.StatusOK || !strings.Contains(body, "WebSocket") {
		t.Errorf("/static/portal.js = %d", code)
	}
	script := f.portal.assets.Asset("portal.js")
	if script == "/static/portal.js" || !strings.Contains(body, `src="`+script+`"`) {
		t.Errorf("shell does not link the fingerprinted script %q", script)
	}
	if code, _ := get(t, f.srv.URL+script); code != http.StatusOK {
		t.Errorf("%s = %d", script, code)
	}

	// Open a session so the gauge is exported.
	c := f.dial(t)
	c.waitFor(idUserBadge, "Not signed in")
	if code, body := get(t, f.srv.URL+"/metrics"); code != http.StatusOK || !strings.Contains(body, "test_") {
		t.Errorf("/metrics = %d %q", code, body)
	}
}

func TestInitialRender(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	c := f.dial(t)

	byTarget := map[string]live.Patch{}
	for _, p := range c.read() {
		byTarget[p.Target+"/"+p.Op] = p
	}

	if p := byTarget[idLogout+"/"+live.OpDisabled]; !p.Value {
		t.Error("expected sign out to start disabled")
	}
	if p := byTarget[idThemeToggle+"/"+live.OpHTML]; p.HTML != "Dark mode" {
		t.Errorf("theme toggle label = %q", p.HTML)
	}
	if p := byTarget[idProductsBody+"/"+live.OpHTML]; !strings.Contains(p.HTML, "No products found") {
		t.Errorf("products body = %q", p.HTML)
	}
	if p := byTarget[idLayout+"/"+live.OpHTML]; !strings.Contains(p.HTML, `data-theme="light"`) {
		t.Errorf("layout = %q", p.HTML)
	}
}

func TestLoginLoadsData(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	c := f.dial(t)

	c.login("secret")
	c.waitFor(idUserBadge, "Ada Lovelace")
	rows := c.waitFor(idProductsBody, "Tea")
	if !strings.Contains(rows.HTML, "1,200") {
		t.Errorf("expected grouped stock in %q", rows.HTML)
	}
	users := c.waitFor(idUsersBody, "ada")
	if strings.Contains(users.HTML, "root") {
		t.Error("admins must not see superadmins")
	}
	c.waitFor(idAccountsBody, "12.50")
}

func TestPageStaysInteractiveWhileLoading(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	f.api.gate = make(chan struct{})
	c := f.dial(t)

	c.login("secret")
	c.waitFor(idUserBadge, "Ada")
	c.waitFor(idProductsBody, "Loading")

	c.send(live.Frame{Event: live.EventClick, Target: idThemeToggle})
	c.waitFor(idLayout, `data-theme="dark"`)

	close(f.api.gate)
	c.waitFor(idProductsBody, "Tea")
}

func TestPanickingFetchShowsErrorToast(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	f.api.accountsPanics = true
	c := f.dial(t)

	c.login("secret")
	c.waitFor(idNotifications, connect.DefaultErrorMessage)
	c.waitFor(idProductsBody, "Tea")
}

func TestLoginFailure(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	c := f.dial(t)

	c.login("wrong")
	c.waitFor(idLoginError, "Invalid credentials")
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	c := f.dial(t)

	c.send(live.Frame{Event: live.EventSubmit, Target: idLoginForm, Values: map[string]string{"username": "  "}})
	c.waitFor(idNotifications, "cannot be blank")
}

func TestProductDelete(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	c := f.dial(t)

	c.login("secret")
	c.waitFor(idProductsBody, "Tea")

	c.send(live.Frame{Event: live.EventSubmit, Target: idProductDelete, Values: map[string]string{"id": "5"}})
	c.waitFor(idProductsBody, "No products found")
	c.waitFor(idNotifications, "Product deleted")

	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	if len(f.api.deleted) != 1 || f.api.deleted[0] != 5 {
		t.Errorf("deleted = %v", f.api.deleted)
	}
}

func TestThemePersistsPerUser(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	c := f.dial(t)

	c.login("secret")
	c.waitFor(idUserBadge, "Ada")

	c.send(live.Frame{Event: live.EventClick, Target: idThemeToggle})
	c.waitFor(idLayout, `data-theme="dark"`)

	raw, err := f.kv.Get(context.Background(), "prefs/1")
	if err != nil {
		t.Fatalf("expected stored preferences: %v", err)
	}
	if string(raw) != `{"theme":"dark","sidebar":"expanded"}` {
		t.Errorf("stored %s", raw)
	}

	// A new page for the same user starts from the stored preferences.
	c2 := f.dial(t)
	c2.login("secret")
	c2.waitFor(idLayout, `data-theme="dark"`)
}

func TestSessionExpiry(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Now().Add(200*time.Millisecond)))
	c := f.dial(t)

	c.login("secret")
	c.waitFor(idUserBadge, "Ada")
	c.waitFor(idNotifications, "expired")
	c.waitFor(idUserBadge, "Not signed in")
}

func TestLogout(t *testing.T) {
	f := newFixture(t, loginAs(admin, time.Time{}))
	c := f.dial(t)

	c.login("secret")
	c.waitFor(idUserBadge, "Ada")
	c.waitFor(idProductsBody, "Tea")

	c.send(live.Frame{Event: live.EventClick, Target: idLogout})
	c.waitFor(idUserBadge, "Not signed in")
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without config")
	}
	if _, err := New(Options{Config: &config.Config{}}); err == nil {
		t.Error("expected error without auth and api")
	}
}

func TestFormatMoney(t *testing.T) {
	if got := formatMoney(12.5, "USD"); !strings.Contains(got, "12.50") || !strings.Contains(got, "$") {
		t.Errorf("formatMoney(USD) = %q", got)
	}
	if got := formatMoney(1234.5, "not a code"); !strings.Contains(got, "234.50") {
		t.Errorf("formatMoney(invalid) = %q", got)
	}
}

func TestPrefSubject(t *testing.T) {
	if got := prefSubject(api.User{ID: 7}); got != "7" {
		t.Errorf("got %q", got)
	}
	if got := prefSubject(api.User{Username: "breakglass"}); got != "user-breakglass" {
		t.Errorf("got %q", got)
	}
}

func TestTrimValuesKeepsPasswords(t *testing.T) {
	v := trimValues(map[string]string{"username": " a ", "password": " p "})
	if v["username"] != "a" || v["password"] != " p " {
		t.Errorf("got %q", v)
	}
}

