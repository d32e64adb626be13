package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultFreeCredits is granted to every user on first sign-in.
const DefaultFreeCredits = 3

// User is the backend's own record of an identity-provider account.
// UserID holds the provider subject (clerkId) and is the key used for authorization.
type User struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID      string             `json:"userId" bson:"userId"`
	Email       string             `json:"email" bson:"email"`
	FirstName   string             `json:"firstName" bson:"firstName"`
	LastName    string             `json:"lastName" bson:"lastName"`
	Credits     int                `json:"credits" bson:"credits"`
	FreeCredits int                `json:"freeCredits" bson:"freeCredits"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// TotalCredits is what the user can still spend on AI generation.
func (u *User) TotalCredits() int {
	return u.Credits + u.FreeCredits
}

// UserProfile is the display data pushed by the client after an identity-provider sign-in.
type UserProfile struct {
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// SaveUserRequest accepts the profile either at the top level or nested under userData,
// which older clients send. Identity always comes from the verified token.
type SaveUserRequest struct {
	UserProfile
	UserData *UserProfile `json:"userData" binding:"omitempty"`
}

// Profile merges the nested userData into the top-level fields.
func (r SaveUserRequest) Profile() UserProfile {
	p := r.UserProfile
	if r.UserData == nil {
		return p
	}
	if p.Email == "" {
		p.Email = r.UserData.Email
	}
	if p.FirstName == "" {
		p.FirstName = r.UserData.FirstName
	}
	if p.LastName == "" {
		p.LastName = r.UserData.LastName
	}
	return p
}

type UpdateUserRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
}
