// Package models holds the server-side domain records shared by the
// repositories, services and transports.
package models

import "time"

// Gender is the enumerated gender of a user.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Valid reports whether g is empty or one of the known values.
func (g Gender) Valid() bool {
	return g == "" || g == GenderMale || g == GenderFemale
}

// Role is the single admin/user flag carried by every account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the account record. Password always holds a bcrypt hash.
//
// TokenVersion is bumped every time a reset token is consumed; reset tokens
// carry the version they were issued against, so a consumed token no longer
// matches.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	DOB          time.Time `json:"dob" bson:"dob"`
	Gender       Gender    `json:"gender,omitempty" bson:"gender,omitempty"`
	Email        string    `json:"email" bson:"email"`
	Address      string    `json:"address" bson:"address"`
	City         string    `json:"city" bson:"city"`
	Pincode      string    `json:"pincode" bson:"pincode"`
	Password     string    `json:"-" bson:"password"`
	UserImg      string    `json:"userImg,omitempty" bson:"user_img,omitempty"`
	Bio          string    `json:"bio,omitempty" bson:"bio,omitempty"`
	Role         Role      `json:"role" bson:"role"`
	TokenVersion int64     `json:"-" bson:"token_version"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ProfileUpdate lists the fields a user may change on their own record.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Username *string
	DOB      *time.Time
	Gender   *Gender
	Address  *string
	City     *string
	Pincode  *string
	Bio      *string
}

// Empty reports whether the update carries no changes.
func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.DOB == nil && p.Gender == nil && p.Address == nil &&
		p.City == nil && p.Pincode == nil && p.Bio == nil
}

// Apply copies the non-nil fields of p onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.DOB != nil {
		u.DOB = *p.DOB
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.City != nil {
		u.City = *p.City
	}
	if p.Pincode != nil {
		u.Pincode = *p.Pincode
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
}
