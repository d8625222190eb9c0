package directory_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/rosterhub/internal/app/features/directory"
	uierrors "github.com/dalemusser/rosterhub/internal/app/features/errors"
	loginstore "github.com/dalemusser/rosterhub/internal/app/store/logins"
	organizationstore "github.com/dalemusser/rosterhub/internal/app/store/organizations"
	profilestore "github.com/dalemusser/rosterhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/dashroute"
	"github.com/dalemusser/rosterhub/internal/app/system/indexes"
	"github.com/dalemusser/rosterhub/internal/app/system/profilebind"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/rosterhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	router   chi.Router
	fixtures *testutil.Fixtures
	users    *userstore.Store
	profiles *profilestore.Store
	ctx      context.Context
}

func newTestEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	users := userstore.New(db, logger)
	profiles := profilestore.New(db)
	users.Listen(profilebind.New(profiles, organizationstore.New(db), nil, logger))

	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	h := directory.NewHandler(users, profiles, organizationstore.New(db), loginstore.New(db), dashroute.WithPaths(map[dashroute.Destination]string{"reports:list": "/reports"}, logger), uierrors.NewErrorLogger(logger), logger)
	return env{
		router:   directory.Routes(h, sm),
		fixtures: testutil.NewFixtures(t, db),
		users:    users,
		profiles: profiles,
		ctx:      ctx,
	}
}

func (e env) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = testutil.WithUser(req, testutil.SuperUser())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Users []struct {
		Username string `json:"username"`
		Action   string `json:"action"`
		IsAdmin  bool   `json:"is_admin"`
	} `json:"users"`
	HasNext    bool   `json:"has_next"`
	NextCursor string `json:"next_cursor"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) listBody {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var b listBody
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return b
}

func TestRoutes_SuperuserOnly(t *testing.T) {
	e := newTestEnv(t)

	req := testutil.NewAuthenticatedRequest("GET", "/users", testutil.RoleUser(models.UserTypeAdmin))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("plain admin: status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("GET", "/users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}
}

func TestServeList_OrderingActionsAndFilters(t *testing.T) {
	e := newTestEnv(t)
	org := e.fixtures.CreateOrganization(e.ctx, "Org")

	carol := e.fixtures.CreateUser(e.ctx, "carol", "carol@example.com", models.UserTypeAttendee)
	e.fixtures.CreateProfile(e.ctx, carol, org.ID, "carol-smith")
	e.fixtures.CreateUser(e.ctx, "alice", "alice@example.com", models.UserTypeOther)
	e.fixtures.CreateUser(e.ctx, "Bob", "bob@example.com", models.UserTypeLeader)

	b := decodeList(t, e.do("GET", "/users", ""))
	var names []string
	for _, u := range b.Users {
		names = append(names, u.Username)
	}
	if strings.Join(names, ",") != "alice,Bob,carol" {
		t.Errorf("order = %v, want alice,Bob,carol", names)
	}
	if b.Users[2].Action != "/attendees/carol-smith" {
		t.Errorf("carol action = %q", b.Users[2].Action)
	}
	if b.Users[0].Action != "/admin/users/alice" {
		t.Errorf("alice action = %q", b.Users[0].Action)
	}

	b = decodeList(t, e.do("GET", "/users?user_type=leader", ""))
	if len(b.Users) != 1 || b.Users[0].Username != "Bob" {
		t.Errorf("user_type filter = %+v", b.Users)
	}

	b = decodeList(t, e.do("GET", "/users?q=car", ""))
	if len(b.Users) != 1 || b.Users[0].Username != "carol" {
		t.Errorf("search = %+v", b.Users)
	}

	if rec := e.do("GET", "/users?user_type=wizard", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad user_type: status = %d", rec.Code)
	}
}

func TestServeList_Paging(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 5; i++ {
		e.fixtures.CreateUser(e.ctx, fmt.Sprintf("user%02d", i), "", models.UserTypeOther)
	}

	first := decodeList(t, e.do("GET", "/users?limit=2", ""))
	if len(first.Users) != 2 || !first.HasNext || first.NextCursor == "" {
		t.Fatalf("first page = %+v", first)
	}
	second := decodeList(t, e.do("GET", "/users?limit=2&after="+first.NextCursor, ""))
	if len(second.Users) != 2 || second.Users[0].Username != "user02" {
		t.Errorf("second page = %+v", second.Users)
	}
}

func TestServeDetail(t *testing.T) {
	e := newTestEnv(t)
	org := e.fixtures.CreateOrganization(e.ctx, "Org")
	lee := e.fixtures.CreateUser(e.ctx, "lee", "lee@example.com", models.UserTypeLeader)
	e.fixtures.CreateProfile(e.ctx, lee, org.ID, "lee")

	rec := e.do("GET", "/users/lee", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Username string `json:"username"`
		UserType string `json:"user_type"`
		Profile  *struct {
			Slug string `json:"slug"`
			Kind string `json:"kind"`
			URL  string `json:"url"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Username != "lee" || body.UserType != "LEADER" {
		t.Errorf("body = %+v", body)
	}
	if body.Profile == nil || body.Profile.URL != "/leaders/lee" || body.Profile.Kind != "leader" {
		t.Errorf("profile = %+v", body.Profile)
	}

	if rec := e.do("GET", "/users/ghost", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing user: status = %d", rec.Code)
	}
}

func TestServeDetail_IsReturning(t *testing.T) {
	e := newTestEnv(t)
	e.fixtures.CreateUser(e.ctx, "fresh", "fresh@example.com", models.UserTypeAttendee)
	back := e.fixtures.CreateUser(e.ctx, "back", "back@example.com", models.UserTypeAttendee)
	if _, err := e.fixtures.DB().Collection("users").UpdateByID(e.ctx, back.ID, bson.M{"$set": bson.M{"is_new_user": false}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	for name, want := range map[string]bool{"fresh": false, "back": true} {
		rec := e.do("GET", "/users/"+name, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", name, rec.Code)
		}
		var body struct {
			IsReturning bool `json:"is_returning"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.IsReturning != want {
			t.Errorf("%s: is_returning = %v, want %v", name, body.IsReturning, want)
		}
	}
}

func TestServeDetail_RecentLogins(t *testing.T) {
	e := newTestEnv(t)
	kim := e.fixtures.CreateUser(e.ctx, "kim", "kim@example.com", models.UserTypeOther)

	logins := loginstore.New(e.fixtures.DB())
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		rec := models.LoginRecord{UserID: kim.ID, IP: fmt.Sprintf("192.0.2.%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := logins.Create(e.ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rec := e.do("GET", "/users/kim", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		RecentLogins []struct {
			IP string `json:"ip"`
		} `json:"recent_logins"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.RecentLogins) != 5 || body.RecentLogins[0].IP != "192.0.2.6" {
		t.Errorf("recent_logins = %+v", body.RecentLogins)
	}
}

func TestHandleEdit(t *testing.T) {
	e := newTestEnv(t)
	org := e.fixtures.CreateOrganization(e.ctx, "Org")
	att := e.fixtures.CreateUser(e.ctx, "ann", "ann@example.com", models.UserTypeAttendee)
	e.fixtures.CreateProfile(e.ctx, att, org.ID, "ann")
	e.fixtures.CreateUser(e.ctx, "ollie", "ollie@example.com", models.UserTypeOther)

	// A name change re-derives the profile slug.
	rec := e.do("PATCH", "/users/ann", `{"first_name":"Ann","last_name":"Lee","is_admin":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	p, err := e.profiles.GetByUserID(e.ctx, att.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if p.Slug != "ann-lee" {
		t.Errorf("slug = %q, want ann-lee", p.Slug)
	}

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"role out of a profile role", "/users/ann", `{"user_type":"OTHER"}`, http.StatusBadRequest},
		{"role into a profile role", "/users/ollie", `{"user_type":"FACULTY"}`, http.StatusBadRequest},
		{"between plain roles", "/users/ollie", `{"user_type":"ADMIN"}`, http.StatusOK},
		{"unknown role", "/users/ollie", `{"user_type":"wizard"}`, http.StatusBadRequest},
		{"duplicate email", "/users/ollie", `{"email":"ann@example.com"}`, http.StatusConflict},
		{"unknown field", "/users/ollie", `{"username":"x"}`, http.StatusBadRequest},
		{"missing user", "/users/ghost", `{"is_active":false}`, http.StatusNotFound},
		{"configured override key", "/users/ollie", `{"route_override":"reports:list"}`, http.StatusOK},
		{"site path override", "/users/ollie", `{"route_override":"/custom/landing"}`, http.StatusOK},
		{"clearing override", "/users/ollie", `{"route_override":""}`, http.StatusOK},
		{"unknown override key", "/users/ollie", `{"route_override":"reports:lsit"}`, http.StatusBadRequest},
		{"scheme-relative override", "/users/ollie", `{"route_override":"//evil.example"}`, http.StatusBadRequest},
		{"backslash override", "/users/ollie", `{"route_override":"/\\evil.example"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.do("PATCH", tt.target, tt.body); rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestHandleEdit_LeaderAdminFlag(t *testing.T) {
	e := newTestEnv(t)
	org := e.fixtures.CreateOrganization(e.ctx, "Org")
	lee := e.fixtures.CreateUser(e.ctx, "lee", "lee@example.com", models.UserTypeLeader)
	e.fixtures.CreateProfile(e.ctx, lee, org.ID, "lee")

	if rec := e.do("PATCH", "/users/lee", `{"is_admin":true}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	u, err := e.users.GetByID(e.ctx, lee.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !u.IsAdmin || u.UserType != models.UserTypeLeader {
		t.Errorf("user = %+v, want an admin LEADER", u)
	}
	n, err := e.fixtures.DB().Collection("profiles").CountDocuments(e.ctx, bson.M{"user_id": lee.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("profiles = %d, want 1", n)
	}
	if d := dashroute.New(nil, zap.NewNop(), nil).Route(u); d != dashroute.LeadersDashboard {
		t.Errorf("Route = %q, want leaders:dashboard", d)
	}
}

func TestHandleCreateOrganization(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("POST", "/organizations", `{"name":"  North District "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var parent struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &parent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parent.Name != "North District" || parent.ID == "" {
		t.Errorf("organization = %+v", parent)
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"child", `{"name":"School","parent_id":"` + parent.ID + `"}`, http.StatusCreated},
		{"blank name", `{"name":"  "}`, http.StatusBadRequest},
		{"malformed parent", `{"name":"X","parent_id":"nope"}`, http.StatusBadRequest},
		{"unknown parent", `{"name":"X","parent_id":"` + primitive.NewObjectID().Hex() + `"}`, http.StatusBadRequest},
		{"unknown field", `{"name":"X","status":"closed"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.do("POST", "/organizations", tt.body); rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}
