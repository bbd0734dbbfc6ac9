package transactions

import (
	"context"
	"testing"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/state/auth"
	"github.com/nanacaring/cmsportal/pkg/store"
)

var ledger = []api.Transaction{
	{ID: 1, AccountID: 10, Type: "credit"},
	{ID: 2, AccountID: 10, Type: "debit"},
	{ID: 3, AccountID: 11, Type: "debit"},
}

var accts = []api.Account{
	{ID: 10, OwnerID: 4, CaregiverID: 3},
	{ID: 11, OwnerID: 5, CaregiverID: 6},
}

func txIDs(txs []api.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func TestFiltered(t *testing.T) {
	tests := []struct {
		filter Filter
		want   int
	}{
		{Filter{}, 3},
		{Filter{AccountID: 10}, 2},
		{Filter{Type: "debit"}, 2},
		{Filter{AccountID: 10, Type: "debit"}, 1},
		{Filter{AccountID: 99}, 0},
	}
	for _, tt := range tests {
		s := Reduce(&State{Items: ledger}, SetFilter{Filter: tt.filter})
		if got := len(s.Filtered()); got != tt.want {
			t.Errorf("Filtered(%+v) = %d, want %d", tt.filter, got, tt.want)
		}
	}
}

func TestVisibleTo(t *testing.T) {
	s := &State{Items: ledger}

	if got := txIDs(s.VisibleTo(api.User{ID: 2, Role: api.RoleAdmin}, accts)); len(got) != 3 {
		t.Errorf("admin sees %v", got)
	}
	if got := txIDs(s.VisibleTo(api.User{ID: 3, Role: api.RoleCaregiver}, accts)); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("caregiver sees %v", got)
	}
	if got := txIDs(s.VisibleTo(api.User{ID: 5, Role: api.RoleMember}, accts)); len(got) != 1 || got[0] != 3 {
		t.Errorf("member sees %v", got)
	}
}

type queryRecorder struct {
	token string
	query api.TransactionQuery
}

func (q *queryRecorder) ListTransactions(_ context.Context, token string, query api.TransactionQuery) ([]api.Transaction, error) {
	q.token, q.query = token, query
	return ledger[:1], nil
}

func TestFetchSendsFilter(t *testing.T) {
	rec := &queryRecorder{}
	st := store.New(
		store.CombineReducers(map[string]store.Reducer[any]{
			Name:      store.Slice(Reduce),
			auth.Name: store.Slice(auth.Reduce),
		}),
		store.NewTree(nil),
		store.ThunkMiddleware[*store.Tree](),
	)
	ctx := context.Background()

	st.Dispatch(ctx, auth.LoginSuccess{Token: "tok"})
	st.Dispatch(ctx, SetFilter{Filter: Filter{AccountID: 10, Type: "credit"}})
	st.Dispatch(ctx, Thunks{API: rec}.Fetch())

	if rec.token != "tok" || rec.query != (api.TransactionQuery{AccountID: 10, Type: "credit"}) {
		t.Errorf("unexpected request %+v", rec)
	}
	if got := From(st.GetState()); len(got.Items) != 1 || got.IsLoading {
		t.Errorf("unexpected state %+v", got)
	}
}
