package portal

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/state"
	"github.com/nanacaring/cmsportal/pkg/assets"
	"github.com/nanacaring/cmsportal/pkg/render"
	"github.com/nanacaring/cmsportal/pkg/store"
	"github.com/nanacaring/cmsportal/pkg/vdom"
)

const (
	productColumns     = 6
	userColumns        = 5
	accountColumns     = 6
	transactionColumns = 6
)

// formatMoney formats amount in the ISO currency code, falling back to a
// plain two-decimal number for unknown codes.
func formatMoney(amount float64, code string) string {
	p := message.NewPrinter(language.English)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return p.Sprintf("%.2f", amount)
	}
	return p.Sprint(currency.Symbol(unit.Amount(amount)))
}

func formatCount(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

type layoutProps struct {
	Theme         string
	Sidebar       string
	Authenticated bool
}

func selectLayout(t *store.Tree) layoutProps {
	u := state.UI(t)
	return layoutProps{Theme: u.Theme, Sidebar: u.Sidebar, Authenticated: state.Auth(t).IsAuthenticated}
}

func layoutView(l layoutProps) *vdom.VNode {
	return vdom.Div(
		vdom.Data("theme", l.Theme),
		vdom.Data("sidebar", l.Sidebar),
		vdom.Data("authenticated", strconv.FormatBool(l.Authenticated)),
	)
}

type badgeProps struct {
	Name string
	Role api.Role
}

func selectBadge(t *store.Tree) badgeProps {
	u := state.Auth(t).User
	if u == nil {
		return badgeProps{}
	}
	name := u.FullName
	if name == "" {
		name = u.Username
	}
	return badgeProps{Name: name, Role: u.Role}
}

func badgeView(b badgeProps) *vdom.VNode {
	if b.Name == "" && b.Role == "" {
		return vdom.Span(vdom.Class("badge", "badge-anonymous"), "Not signed in")
	}
	return vdom.Span(vdom.Class("badge"), "Signed in as ", vdom.Strong(b.Name), vdom.Small(" ("+string(b.Role)+")"))
}

func alertView(msg string) *vdom.VNode {
	if msg == "" {
		return vdom.Fragment()
	}
	return vdom.P(vdom.Class("form-error"), vdom.Role("alert"), msg)
}

func productRow(p api.Product, code string) *vdom.VNode {
	id := strconv.FormatInt(p.ID, 10)
	status := "Inactive"
	if p.IsActive {
		status = "Active"
	}
	return vdom.Tr(vdom.Key(id),
		vdom.Td(p.Name),
		vdom.Td(p.Category),
		vdom.Td(vdom.Class("num"), formatMoney(float64(p.Price), code)),
		vdom.Td(vdom.Class("num"), formatCount(int64(p.Stock))),
		vdom.Td(status),
		vdom.Td(deleteForm(idProductDelete, id, "Delete")),
	)
}

// deleteForm is a one-button form that submits id to the target binding.
func deleteForm(target, id, label string) *vdom.VNode {
	return vdom.Form(vdom.Data("target", target),
		vdom.Input(vdom.Type("hidden"), vdom.Name("id"), vdom.Value(id)),
		vdom.Button(vdom.Type("submit"), vdom.Class("danger"), label),
	)
}

func userRow(u api.User) *vdom.VNode {
	status := "Inactive"
	if u.IsActive {
		status = "Active"
	}
	return vdom.Tr(vdom.Key(strconv.FormatInt(u.ID, 10)),
		vdom.Td(u.Username),
		vdom.Td(u.FullName),
		vdom.Td(u.Email),
		vdom.Td(string(u.Role)),
		vdom.Td(status),
	)
}

func accountRow(a api.Account, fallback string) *vdom.VNode {
	id := strconv.FormatInt(a.ID, 10)
	code := a.Currency
	if code == "" {
		code = fallback
	}
	return vdom.Tr(vdom.Key(id),
		vdom.Td(id),
		vdom.Td(a.Name),
		vdom.Td(vdom.Class("num"), formatMoney(float64(a.Balance), code)),
		vdom.Td(string(a.Status)),
		vdom.Td(strconv.FormatInt(a.CaregiverID, 10)),
		vdom.Td(statusForm(id, a.Status)),
	)
}

func statusForm(id string, current api.AccountStatus) *vdom.VNode {
	options := make([]*vdom.VNode, 0, 3)
	for _, s := range []api.AccountStatus{api.AccountActive, api.AccountSuspended, api.AccountClosed} {
		options = append(options, vdom.Option(vdom.Value(string(s)), vdom.If(s == current, vdom.Selected()), string(s)))
	}
	return vdom.Form(vdom.Data("target", idAccountStatus),
		vdom.Input(vdom.Type("hidden"), vdom.Name("id"), vdom.Value(id)),
		vdom.Select(vdom.Name("status"), options),
		vdom.Button(vdom.Type("submit"), "Update"),
	)
}

func transactionRow(tx api.Transaction, fallback string) *vdom.VNode {
	code := tx.Currency
	if code == "" {
		code = fallback
	}
	date := ""
	if !tx.CreatedAt.IsZero() {
		date = tx.CreatedAt.Format("2006-01-02 15:04")
	}
	return vdom.Tr(vdom.Key(strconv.FormatInt(tx.ID, 10)),
		vdom.Td(date),
		vdom.Td(strconv.FormatInt(tx.AccountID, 10)),
		vdom.Td(tx.Type),
		vdom.Td(vdom.Class("num"), formatMoney(float64(tx.Amount), code)),
		vdom.Td(tx.Description),
		vdom.Td(tx.Status),
	)
}

func field(label, name, typ string, attrs ...vdom.Attr) *vdom.VNode {
	return vdom.Label(label,
		vdom.Input(vdom.Name(name), vdom.Type(typ), attrs),
	)
}

func table(bodyID string, headers ...string) *vdom.VNode {
	ths := make([]*vdom.VNode, len(headers))
	for i, h := range headers {
		ths[i] = vdom.Th(h)
	}
	return vdom.Table(
		vdom.Thead(vdom.Tr(ths)),
		vdom.Tbody(vdom.ID(bodyID)),
	)
}

func liveForm(id string, children ...any) *vdom.VNode {
	return vdom.Form(append([]any{vdom.ID(id), vdom.Data("target", id)}, children...)...)
}

func shell(res assets.Resolver) *vdom.VNode {
	head := vdom.El("head",
		vdom.El("meta", vdom.A("charset", "utf-8")),
		vdom.El("meta", vdom.Name("viewport"), vdom.A("content", "width=device-width, initial-scale=1")),
		vdom.El("title", "NanaCaring CMS"),
		vdom.El("link", vdom.A("rel", "stylesheet"), vdom.A("href", res.Asset("portal.css"))),
	)

	header := vdom.Header(vdom.Class("topbar"),
		vdom.Strong("NanaCaring CMS"),
		vdom.Span(vdom.ID(idUserBadge)),
		vdom.Button(vdom.ID(idSidebarToggle), vdom.Data("target", idSidebarToggle), vdom.Type("button")),
		vdom.Button(vdom.ID(idThemeToggle), vdom.Data("target", idThemeToggle), vdom.Type("button")),
		vdom.Button(vdom.ID(idLogout), vdom.Data("target", idLogout), vdom.Type("button"), "Sign out"),
	)

	nav := vdom.Aside(vdom.Class("sidebar"),
		vdom.Nav(vdom.Ul(
			vdom.Li(vdom.El("a", vdom.A("href", "#products"), "Products")),
			vdom.Li(vdom.El("a", vdom.A("href", "#users"), "Users")),
			vdom.Li(vdom.El("a", vdom.A("href", "#accounts"), "Accounts")),
			vdom.Li(vdom.El("a", vdom.A("href", "#transactions"), "Transactions")),
		)),
	)

	login := vdom.Section(vdom.ID("login"), vdom.Class("signed-out-only"),
		vdom.H2("Sign in"),
		liveForm(idLoginForm,
			field("Username", "username", "text", vdom.Required()),
			field("Password", "password", "password", vdom.Required()),
			vdom.Button(vdom.Type("submit"), "Sign in"),
		),
		vdom.Div(vdom.ID(idLoginError)),
	)

	productsSection := vdom.Section(vdom.ID("products"), vdom.Class("signed-in-only"),
		vdom.H2("Products"),
		liveForm(idProductFilter,
			field("Search", "query", "search"),
			field("Category", "category", "text"),
			vdom.Button(vdom.Type("submit"), "Filter"),
		),
		table(idProductsBody, "Name", "Category", "Price", "Stock", "Status", ""),
		liveForm(idProductCreate,
			field("Name", "name", "text", vdom.Required()),
			field("Category", "category", "text"),
			field("Price", "price", "text", vdom.Required()),
			field("Stock", "stock", "number"),
			field("Description", "description", "text"),
			vdom.Button(vdom.Type("submit"), "Add product"),
		),
	)

	roleOptions := make([]*vdom.VNode, 0, len(api.AllRoles))
	for _, r := range api.AllRoles {
		roleOptions = append(roleOptions, vdom.Option(vdom.Value(string(r)), string(r)))
	}
	usersSection := vdom.Section(vdom.ID("users"), vdom.Class("signed-in-only"),
		vdom.H2("Users"),
		table(idUsersBody, "Username", "Name", "Email", "Role", "Status"),
		liveForm(idUserCreate,
			field("Username", "username", "text", vdom.Required()),
			field("Email", "email", "email", vdom.Required()),
			field("Full name", "full_name", "text"),
			vdom.Label("Role", vdom.Select(vdom.Name("role"), roleOptions)),
			field("Password", "password", "password", vdom.Required()),
			vdom.Button(vdom.Type("submit"), "Add user"),
		),
	)

	accountsSection := vdom.Section(vdom.ID("accounts"), vdom.Class("signed-in-only"),
		vdom.H2("Accounts"),
		table(idAccountsBody, "ID", "Name", "Balance", "Status", "Caregiver", ""),
	)

	transactionsSection := vdom.Section(vdom.ID("transactions"), vdom.Class("signed-in-only"),
		vdom.H2("Transactions"),
		liveForm(idTransactionFilter,
			field("Account", "account_id", "number"),
			vdom.Label("Type", vdom.Select(vdom.Name("type"),
				vdom.Option(vdom.Value(""), "All"),
				vdom.Option(vdom.Value("credit"), "Credit"),
				vdom.Option(vdom.Value("debit"), "Debit"),
			)),
			vdom.Button(vdom.Type("submit"), "Filter"),
		),
		table(idTransactionsBody, "Date", "Account", "Type", "Amount", "Description", "Status"),
	)

	body := vdom.El("body",
		vdom.Div(vdom.ID(idLayout), vdom.A("hidden", true)),
		vdom.Div(vdom.ID(idNotifications), vdom.Data("target", idNotifications), vdom.Class("toasts"), vdom.AriaLive("polite")),
		header,
		vdom.Div(vdom.Class("shell"),
			nav,
			vdom.Main(login, productsSection, usersSection, accountsSection, transactionsSection),
		),
		vdom.El("script", vdom.A("src", res.Asset("portal.js")), vdom.A("defer", true)),
	)

	return vdom.El("html", vdom.A("lang", "en"), head, body)
}

func writeShell(w io.Writer, res assets.Resolver) error {
	if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
		return err
	}
	if err := render.NewRenderer().RenderToWriter(w, shell(res)); err != nil {
		return fmt.Errorf("render shell: %w", err)
	}
	return nil
}
