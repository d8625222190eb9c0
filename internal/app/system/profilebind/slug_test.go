package profilebind

import (
	"testing"

	"github.com/dalemusser/rosterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ada Lovelace", "ada-lovelace"},
		{"  José   Álvarez ", "jose-alvarez"},
		{"O'Brien", "obrien"},
		{"a -- b", "a-b"},
		{"__under__", "under"},
		{"snake_case name", "snake_case-name"},
		{"日本語", ""},
		{"", ""},
		{"ﬁle", "file"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseSlug(t *testing.T) {
	id := primitive.NewObjectID()
	tests := []struct {
		name string
		user models.User
		want string
	}{
		{"both names", models.User{Username: "ada1815", FirstName: "Ada", LastName: "Lovelace"}, "ada-lovelace"},
		{"first only", models.User{Username: "Ada.L", FirstName: "Ada"}, "adal"},
		{"blank last", models.User{Username: "grace", FirstName: "Grace", LastName: "   "}, "grace"},
		{"names slugify to nothing", models.User{Username: "kenji", FirstName: "健二", LastName: "山田"}, "kenji"},
		{"nothing usable", models.User{ID: id, Username: "鈴木"}, "user-" + id.Hex()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			if got := BaseSlug(&u); got != tt.want {
				t.Errorf("BaseSlug = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithSuffixAndSuffixOf(t *testing.T) {
	if got := withSuffix("ada", 1); got != "ada" {
		t.Errorf("withSuffix(1) = %q", got)
	}
	if got := withSuffix("ada", 3); got != "ada-3" {
		t.Errorf("withSuffix(3) = %q", got)
	}
	if got := suffixOf("ada-3", "ada"); got != 3 {
		t.Errorf("suffixOf = %d", got)
	}
	if got := suffixOf("ada", "ada"); got != 1 {
		t.Errorf("suffixOf(base) = %d", got)
	}
}
