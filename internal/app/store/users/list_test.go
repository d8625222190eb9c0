package userstore_test

import (
	"fmt"
	"testing"

	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

func TestStore_List_PagesInUsernameOrder(t *testing.T) {
	_, store, ctx := newStore(t)
	for i := 5; i >= 1; i-- {
		if _, err := store.Create(ctx, models.User{
			Username: fmt.Sprintf("user%d", i),
			UserType: models.UserTypeOther,
		}, userstore.CreateOptions{}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	page, err := store.List(ctx, userstore.ListQuery{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Users) != 2 || page.Users[0].Username != "user1" || page.Users[1].Username != "user2" {
		t.Fatalf("first page = %v", usernames(page.Users))
	}
	if !page.HasNext || page.HasPrev {
		t.Errorf("first page flags = %+v", page.Result)
	}

	page2, err := store.List(ctx, userstore.ListQuery{Limit: 2, After: page.NextCursor})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if got := usernames(page2.Users); len(got) != 2 || got[0] != "user3" || got[1] != "user4" {
		t.Fatalf("second page = %v", got)
	}

	back, err := store.List(ctx, userstore.ListQuery{Limit: 2, Before: page2.PrevCursor})
	if err != nil {
		t.Fatalf("List back: %v", err)
	}
	if got := usernames(back.Users); len(got) != 2 || got[0] != "user1" || got[1] != "user2" {
		t.Fatalf("back page = %v", got)
	}
}

func TestStore_List_Filters(t *testing.T) {
	_, store, ctx := newStore(t)
	mk := func(username, email, first string, role models.UserType) {
		t.Helper()
		if _, err := store.Create(ctx, models.User{
			Username: username, Email: email, FirstName: first, UserType: role,
		}, userstore.CreateOptions{}); err != nil {
			t.Fatalf("Create %s: %v", username, err)
		}
	}
	mk("alice", "alice@school.org", "Alice", models.UserTypeOther)
	mk("bob", "bob@school.org", "Robert", models.UserTypeAdmin)
	mk("carol", "carol@other.org", "Carol", models.UserTypeAdmin)

	admin := models.UserTypeAdmin
	page, err := store.List(ctx, userstore.ListQuery{Filter: userstore.ListFilter{UserType: admin}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := usernames(page.Users); len(got) != 2 {
		t.Errorf("user_type filter = %v", got)
	}

	page, err = store.List(ctx, userstore.ListQuery{Filter: userstore.ListFilter{Search: "rob"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := usernames(page.Users); len(got) != 1 || got[0] != "bob" {
		t.Errorf("first-name search = %v", got)
	}

	inactive := false
	page, err = store.List(ctx, userstore.ListQuery{Filter: userstore.ListFilter{IsActive: &inactive, Search: "CAR"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := usernames(page.Users); len(got) != 1 || got[0] != "carol" {
		t.Errorf("combined filter = %v", got)
	}
}

func usernames(us []models.User) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.Username
	}
	return out
}
