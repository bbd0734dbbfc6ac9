package products

import (
	"testing"

	"github.com/nanacaring/cmsportal/internal/api"
)

var catalogue = []api.Product{
	{ID: 1, Name: "Green Tea", Category: "drinks"},
	{ID: 2, Name: "Biscuits", Description: "Oat and tea flavour", Category: "snacks"},
	{ID: 3, Name: "Water", Category: "drinks"},
}

func TestFiltered(t *testing.T) {
	tests := []struct {
		filter Filter
		want   []int64
	}{
		{Filter{}, []int64{1, 2, 3}},
		{Filter{Query: " TEA "}, []int64{1, 2}},
		{Filter{Category: "drinks"}, []int64{1, 3}},
		{Filter{Query: "tea", Category: "drinks"}, []int64{1}},
	}
	for _, tt := range tests {
		s := Reduce(&State{Items: catalogue}, SetFilter{Filter: tt.filter})
		got := s.Filtered()
		if len(got) != len(tt.want) {
			t.Errorf("Filtered(%+v) = %d items, want %d", tt.filter, len(got), len(tt.want))
			continue
		}
		for i, p := range got {
			if p.ID != tt.want[i] {
				t.Errorf("Filtered(%+v)[%d] = %d, want %d", tt.filter, i, p.ID, tt.want[i])
			}
		}
	}
}

func TestSelection(t *testing.T) {
	s := Reduce(&State{Items: catalogue}, Select{ProductID: 2})
	if p, ok := s.Selected(); !ok || p.ID != 2 {
		t.Fatalf("Selected() = %v, %v", p, ok)
	}
	if Reduce(s, Select{ProductID: 2}) != s {
		t.Error("reselecting should be a no-op")
	}

	s = Reduce(s, DeleteSuccess{ProductID: 2})
	if _, ok := s.Selected(); ok || s.SelectedID != 0 {
		t.Error("deleting the selected product should clear the selection")
	}

	s = Reduce(Reduce(s, Select{ProductID: 3}), FetchSuccess{Items: catalogue[:1]})
	if s.SelectedID != 0 {
		t.Error("a refetch without the selected product should clear the selection")
	}
}

func TestDeleteKeepsInputIntact(t *testing.T) {
	items := append([]api.Product(nil), catalogue...)
	s := Reduce(&State{Items: items}, DeleteSuccess{ProductID: 1})
	if len(s.Items) != 2 || items[0].ID != 1 {
		t.Errorf("delete mutated the previous items: %+v", items)
	}
}
