package users

import (
	"testing"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/state/auth"
)

var everyone = []api.User{
	{ID: 1, Role: api.RoleSuperadmin},
	{ID: 2, Role: api.RoleAdmin},
	{ID: 3, Role: api.RoleCaregiver},
	{ID: 4, Role: api.RoleMember},
}

func ids(users []api.User) []int64 {
	out := make([]int64, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestVisibleTo(t *testing.T) {
	s := &State{Items: everyone}
	tests := []struct {
		viewer api.User
		want   []int64
	}{
		{everyone[0], []int64{1, 2, 3, 4}},
		{everyone[1], []int64{2, 3, 4}},
		{everyone[2], []int64{3}},
		{everyone[3], []int64{4}},
		{api.User{ID: 9}, nil},
	}
	for _, tt := range tests {
		if got := ids(s.VisibleTo(tt.viewer)); !equal(got, tt.want) {
			t.Errorf("VisibleTo(%s) = %v, want %v", tt.viewer.Role, got, tt.want)
		}
	}
}

func TestVisibleToRoleFilter(t *testing.T) {
	s := Reduce(&State{Items: everyone}, SetRoleFilter{Role: api.RoleMember})
	if got := ids(s.VisibleTo(everyone[1])); !equal(got, []int64{4}) {
		t.Errorf("got %v, want [4]", got)
	}
	if again := Reduce(s, SetRoleFilter{Role: api.RoleMember}); again != s {
		t.Error("expected same filter to be a no-op")
	}
}

func TestCanManage(t *testing.T) {
	for _, u := range everyone {
		want := u.Role == api.RoleSuperadmin || u.Role == api.RoleAdmin
		if got := CanManage(u); got != want {
			t.Errorf("CanManage(%s) = %v", u.Role, got)
		}
	}
}

func TestReduceLifecycle(t *testing.T) {
	s := Reduce(nil, FetchStart{})
	if !s.IsLoading {
		t.Fatal("expected loading")
	}
	s = Reduce(s, FetchSuccess{Items: everyone[:2]})
	s = Reduce(s, UpdateSuccess{User: api.User{ID: 2, Role: api.RoleAdmin, FullName: "Ada"}})
	if s.Items[1].FullName != "Ada" || everyone[1].FullName != "" {
		t.Errorf("update should replace in a copy, got %+v", s.Items)
	}
	s = Reduce(s, DeleteFailure{UserID: 2, Error: "nope"})
	if len(s.Items) != 2 || s.Error != "nope" || s.IsLoading {
		t.Errorf("unexpected state %+v", s)
	}
	s = Reduce(s, DeleteSuccess{UserID: 2})
	if !equal(ids(s.Items), []int64{1}) {
		t.Errorf("got %v, want [1]", ids(s.Items))
	}
	if out := Reduce(s, auth.LogoutDone{}); len(out.Items) != 0 {
		t.Error("expected reset on logout")
	}
}
