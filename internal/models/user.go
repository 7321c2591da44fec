package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a document in the users collection.
type User struct {
	ID        primitive.ObjectID `json:"_id"    bson:"_id,omitempty"`
	Name      string             `json:"name"   bson:"name"`
	Email     string             `json:"email"  bson:"email"`
	Password  string             `json:"-"      bson:"password"` // bcrypt hash, never serialized
	Avatar    string             `json:"avatar" bson:"avatar"`
	AvatarKey string             `json:"-"      bson:"avatar_key,omitempty"`
	Date      time.Time          `json:"date"   bson:"date"`
}

// UserSummary is the subset of a user embedded in profile responses.
type UserSummary struct {
	ID     primitive.ObjectID `json:"_id"`
	Name   string             `json:"name"`
	Avatar string             `json:"avatar"`
}

// Summary returns the public name and avatar of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

// RegisterRequest is the JSON body for POST /api/users.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required" msg:"Name is Required"`
	Email    string `json:"email"    validate:"email"    msg:"Please enter a valid email address"`
	Password string `json:"password" validate:"min=6"    msg:"Password length needs to be of minimum 6 "`
}

// LoginRequest is the JSON body for POST /api/auth.
type LoginRequest struct {
	Email    string `json:"email"    validate:"email"    msg:"Please include a valid email"`
	Password string `json:"password" validate:"required" msg:"Password is required"`
}
