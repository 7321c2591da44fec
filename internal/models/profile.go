package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is a developer profile stored in MongoDB, one per user.
type Profile struct {
	ID             primitive.ObjectID `json:"_id"            bson:"_id,omitempty"`
	User           primitive.ObjectID `json:"user"           bson:"user"`
	Company        string             `json:"company"        bson:"company"`
	Website        string             `json:"website"        bson:"website"`
	Location       string             `json:"location"       bson:"location"`
	Status         string             `json:"status"         bson:"status"`
	Skills         []string           `json:"skills"         bson:"skills"`
	Bio            string             `json:"bio"            bson:"bio"`
	GitHubUsername string             `json:"githubusername" bson:"githubusername"`
	Experience     []Experience       `json:"experience"     bson:"experience"`
	Education      []Education        `json:"education"      bson:"education"`
	Social         Social             `json:"social"         bson:"social"`
	Date           time.Time          `json:"date"           bson:"date"`
}

// ProfileView is a profile with its owner's name and avatar filled in.
type ProfileView struct {
	*Profile
	User UserSummary `json:"user"`
}

type Experience struct {
	ID          primitive.ObjectID `json:"_id"           bson:"_id"`
	Title       string             `json:"title"         bson:"title"`
	Company     string             `json:"company"       bson:"company"`
	Location    string             `json:"location"      bson:"location"`
	From        time.Time          `json:"from"          bson:"from"`
	To          *time.Time         `json:"to,omitempty"  bson:"to,omitempty"`
	Current     bool               `json:"current"       bson:"current"`
	Description string             `json:"description"   bson:"description"`
}

type Education struct {
	ID           primitive.ObjectID `json:"_id"          bson:"_id"`
	School       string             `json:"school"       bson:"school"`
	Degree       string             `json:"degree"       bson:"degree"`
	FieldOfStudy string             `json:"fieldofstudy" bson:"fieldofstudy"`
	From         time.Time          `json:"from"         bson:"from"`
	To           *time.Time         `json:"to,omitempty" bson:"to,omitempty"`
	Current      bool               `json:"current"      bson:"current"`
	Description  string             `json:"description"  bson:"description"`
}

type Social struct {
	YouTube   string `json:"youtube,omitempty"   bson:"youtube,omitempty"`
	Twitter   string `json:"twitter,omitempty"   bson:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"  bson:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"  bson:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty" bson:"instagram,omitempty"`
}

// ProfileRequest is the JSON body for POST /api/profile. Skills is a comma
// separated list.
type ProfileRequest struct {
	Company        string `json:"company"`
	Website        string `json:"website"`
	Location       string `json:"location"`
	Bio            string `json:"bio"`
	Status         string `json:"status" validate:"required" msg:"Status is required"`
	GitHubUsername string `json:"githubusername"`
	Skills         string `json:"skills" validate:"required" msg:"Skills is required"`
	YouTube        string `json:"youtube"`
	Twitter        string `json:"twitter"`
	Facebook       string `json:"facebook"`
	LinkedIn       string `json:"linkedin"`
	Instagram      string `json:"instagram"`
}

// ExperienceRequest is the JSON body for PUT /api/profile/experience.
type ExperienceRequest struct {
	Title       string `json:"title"   validate:"required"       msg:"Title is required"`
	Company     string `json:"company" validate:"required"       msg:"Company is required"`
	Location    string `json:"location"`
	From        string `json:"from"    validate:"required,date"  msg:"From date is required"`
	To          string `json:"to"      validate:"omitempty,date" msg:"To date is invalid"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

// EducationRequest is the JSON body for PUT /api/profile/education.
type EducationRequest struct {
	School       string `json:"school"       validate:"required"       msg:"School is required"`
	Degree       string `json:"degree"       validate:"required"       msg:"Degree is required"`
	FieldOfStudy string `json:"fieldofstudy" validate:"required"       msg:"Field of study is required"`
	From         string `json:"from"         validate:"required,date"  msg:"From date is required"`
	To           string `json:"to"           validate:"omitempty,date" msg:"To date is invalid"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}
