// internal/domain/models/profile.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileKind discriminates the concrete profile types stored together in
// the profiles collection.
type ProfileKind string

const (
	ProfileAttendee ProfileKind = "attendee"
	ProfileLeader   ProfileKind = "leader"
	ProfileFaculty  ProfileKind = "faculty"
)

// pathSegment is the plural used in canonical URLs.
func (k ProfileKind) pathSegment() string {
	switch k {
	case ProfileAttendee:
		return "attendees"
	case ProfileLeader:
		return "leaders"
	case ProfileFaculty:
		return "faculty"
	}
	return string(k)
}

// Address is an optional postal address attached to a profile.
type Address struct {
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state" json:"state"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
}

// Profile is the role-specific extension of a User. Exactly one exists per
// attendee, leader or faculty user.
type Profile struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind           ProfileKind        `bson:"kind" json:"kind"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Address        *Address           `bson:"address,omitempty" json:"address,omitempty"`
	Slug           string             `bson:"slug" json:"slug"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// URL is the profile's canonical path, e.g. /attendees/ada-lovelace.
func (p *Profile) URL() string {
	return "/" + p.Kind.pathSegment() + "/" + p.Slug
}
