package paging

import (
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", PageSize},
		{"?limit=10", 10},
		{"?limit=0", PageSize},
		{"?limit=-3", PageSize},
		{"?limit=abc", PageSize},
		{"?limit=100000", MaxPageSize},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/admin/users"+tt.query, nil)
		if got := ParseLimit(r); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestTrimPage(t *testing.T) {
	const size = 3
	tests := []struct {
		name       string
		rows       []int
		before     string
		after      string
		wantRows   []int
		wantResult Result
	}{
		{
			name:       "first page with no extra",
			rows:       []int{1, 2},
			wantRows:   []int{1, 2},
			wantResult: Result{},
		},
		{
			name:       "first page with extra",
			rows:       []int{1, 2, 3, 4},
			wantRows:   []int{1, 2, 3},
			wantResult: Result{HasNext: true},
		},
		{
			name:       "forward page with extra",
			rows:       []int{4, 5, 6, 7},
			after:      "c",
			wantRows:   []int{4, 5, 6},
			wantResult: Result{HasPrev: true, HasNext: true},
		},
		{
			name:       "backward page with extra",
			rows:       []int{0, 1, 2, 3},
			before:     "c",
			wantRows:   []int{1, 2, 3},
			wantResult: Result{HasPrev: true, HasNext: true},
		},
		{
			name:       "backward page reaching start",
			rows:       []int{1, 2},
			before:     "c",
			wantRows:   []int{1, 2},
			wantResult: Result{HasNext: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := append([]int(nil), tt.rows...)
			got := TrimPage(&rows, tt.before, tt.after, size)
			if got != tt.wantResult {
				t.Errorf("result = %+v, want %+v", got, tt.wantResult)
			}
			if len(rows) != len(tt.wantRows) {
				t.Fatalf("rows = %v, want %v", rows, tt.wantRows)
			}
			for i := range rows {
				if rows[i] != tt.wantRows[i] {
					t.Fatalf("rows = %v, want %v", rows, tt.wantRows)
				}
			}
		})
	}
}

func TestConfigureKeyset_RoundTrip(t *testing.T) {
	id := primitive.NewObjectID()
	prev, next := BuildCursors([]string{"alice", "bob"},
		func(s string) string { return s },
		func(string) primitive.ObjectID { return id })

	fwd := ConfigureKeyset("", next)
	if fwd.Direction != Forward || fwd.SortOrder != 1 {
		t.Fatalf("forward config = %+v", fwd)
	}
	if fwd.Cursor == nil || fwd.Cursor.CI != "bob" || fwd.Cursor.ID != id {
		t.Fatalf("forward cursor = %+v", fwd.Cursor)
	}
	if fwd.KeysetWindow("username_ci") == nil {
		t.Error("expected a keyset window for a decoded cursor")
	}

	back := ConfigureKeyset(prev, "")
	if back.Direction != Backward || back.SortOrder != -1 {
		t.Fatalf("backward config = %+v", back)
	}
	if back.Cursor == nil || back.Cursor.CI != "alice" {
		t.Fatalf("backward cursor = %+v", back.Cursor)
	}
}

func TestConfigureKeyset_FirstPage(t *testing.T) {
	cfg := ConfigureKeyset("", "")
	if cfg.Cursor != nil {
		t.Error("first page should have no cursor")
	}
	if cfg.KeysetWindow("username_ci") != nil {
		t.Error("first page should have no window")
	}
}

func TestReverse(t *testing.T) {
	rows := []int{1, 2, 3}
	Reverse(rows)
	if rows[0] != 3 || rows[2] != 1 {
		t.Errorf("Reverse = %v", rows)
	}
}
