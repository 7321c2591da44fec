package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a document in the posts collection. Likes and comments are kept
// newest first.
type Post struct {
	ID       primitive.ObjectID `json:"_id"      bson:"_id,omitempty"`
	User     primitive.ObjectID `json:"user"     bson:"user"`
	Text     string             `json:"text"     bson:"text"`
	Name     string             `json:"name"     bson:"name"`
	Avatar   string             `json:"avatar"   bson:"avatar"`
	Likes    []Like             `json:"likes"    bson:"likes"`
	Comments []Comment          `json:"comments" bson:"comments"`
	Date     time.Time          `json:"date"     bson:"date"`
}

type Like struct {
	User primitive.ObjectID `json:"user" bson:"user"`
}

type Comment struct {
	ID     primitive.ObjectID `json:"_id"    bson:"_id"`
	User   primitive.ObjectID `json:"user"   bson:"user"`
	Text   string             `json:"text"   bson:"text"`
	Name   string             `json:"name"   bson:"name"`
	Avatar string             `json:"avatar" bson:"avatar"`
	Date   time.Time          `json:"date"   bson:"date"`
}

// PostRequest is the JSON body for creating a post or a comment.
type PostRequest struct {
	Text string `json:"text" validate:"required" msg:"Text is required"`
}
