// internal/domain/models/user.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserType is the role a user was created with. It decides which profile
// the user owns and which dashboard they land on.
type UserType string

const (
	UserTypeAdmin               UserType = "ADMIN"
	UserTypeOrganizationFaculty UserType = "ORGANIZATION_FACULTY"
	UserTypeFacilityFaculty     UserType = "FACILITY_FACULTY"
	UserTypeFaculty             UserType = "FACULTY"
	UserTypeLeader              UserType = "LEADER"
	UserTypeAttendee            UserType = "ATTENDEE"
	UserTypeOther               UserType = "OTHER"
)

// UserTypes lists every valid role in display order.
var UserTypes = []UserType{
	UserTypeAdmin,
	UserTypeOrganizationFaculty,
	UserTypeFacilityFaculty,
	UserTypeFaculty,
	UserTypeLeader,
	UserTypeAttendee,
	UserTypeOther,
}

var userTypeLabels = map[UserType]string{
	UserTypeAdmin:               "Admin",
	UserTypeOrganizationFaculty: "Organization Faculty",
	UserTypeFacilityFaculty:     "Facility Faculty",
	UserTypeFaculty:             "Faculty",
	UserTypeLeader:              "Leader",
	UserTypeAttendee:            "Attendee",
	UserTypeOther:               "Other",
}

// ParseUserType accepts any case and either "_" or " " as the word separator.
func ParseUserType(s string) (UserType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	t := UserType(s)
	if _, ok := userTypeLabels[t]; !ok {
		return "", false
	}
	return t, true
}

// Valid reports whether t is one of the known roles.
func (t UserType) Valid() bool {
	_, ok := userTypeLabels[t]
	return ok
}

// Label is the human-readable role name.
func (t UserType) Label() string {
	if l, ok := userTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// ProfileKind returns the profile kind owned by users of this role.
// ok is false for roles without a concrete profile.
func (t UserType) ProfileKind() (ProfileKind, bool) {
	switch t {
	case UserTypeAttendee:
		return ProfileAttendee, true
	case UserTypeLeader:
		return ProfileLeader, true
	case UserTypeFaculty:
		return ProfileFaculty, true
	}
	return "", false
}

// User is the authenticable account record.
//
// The role-specific details (organization, address, slug) live on the
// user's Profile, not here.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	UsernameCI   string             `bson:"username_ci" json:"-"` // folded, for sort/keyset
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	UserType     UserType           `bson:"user_type" json:"user_type"`

	IsAdmin     bool `bson:"is_admin" json:"is_admin"`
	IsActive    bool `bson:"is_active" json:"is_active"`
	IsNewUser   bool `bson:"is_new_user" json:"is_new_user"`
	IsSuperuser bool `bson:"is_superuser" json:"is_superuser"`
	IsStaff     bool `bson:"is_staff" json:"is_staff"`

	// RouteOverride sends this user somewhere other than their role's
	// dashboard after login (a destination key or an absolute path).
	RouteOverride string `bson:"route_override,omitempty" json:"route_override,omitempty"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsReturning reports whether the user is an attendee who has signed in before.
func (u *User) IsReturning() bool {
	return !u.IsNewUser && u.UserType == UserTypeAttendee
}

// Authenticated is true for any persisted user. A nil *User is anonymous.
func (u *User) Authenticated() bool {
	return u != nil && !u.ID.IsZero()
}

// Superuser reports the framework-level superuser flag.
func (u *User) Superuser() bool {
	return u != nil && u.IsSuperuser
}

// Role returns the user_type as a plain string.
func (u *User) Role() string {
	if u == nil {
		return ""
	}
	return string(u.UserType)
}

// OverrideRoute returns the stored per-user destination, if any.
func (u *User) OverrideRoute() (string, bool) {
	if u == nil {
		return "", false
	}
	r := strings.TrimSpace(u.RouteOverride)
	return r, r != ""
}
