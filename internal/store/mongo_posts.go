package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/devconnector/backend/internal/models"
)

const postsCollection = "posts"

// PostStore handles posts, their likes and their comments in MongoDB. Like
// and comment changes are single conditional updates, so concurrent
// requests cannot double-like or lose a comment.
type PostStore struct {
	col *mongo.Collection
}

func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{col: db.Collection(postsCollection)}
}

func (s *PostStore) CreatePost(ctx context.Context, p *models.Post) error {
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	if p.Likes == nil {
		p.Likes = []models.Like{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	res, err := s.col.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("mongo insert post: %w", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *PostStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostStore) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var p models.Post
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *PostStore) DeletePost(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostStore) DeletePostsByUser(ctx context.Context, userID string) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}
	_, err = s.col.DeleteMany(ctx, bson.M{"user": oid})
	return err
}

// AddLike prepends a like by userID. ErrConflict means the user already
// likes the post.
func (s *PostStore) AddLike(ctx context.Context, postID, userID string) ([]models.Like, error) {
	pid, uid, err := postAndUser(postID, userID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": pid, "likes.user": bson.M{"$ne": uid}}
	update := bson.M{"$push": bson.M{"likes": bson.M{"$each": bson.A{models.Like{User: uid}}, "$position": 0}}}

	p, err := s.update(ctx, pid, filter, update)
	if err != nil {
		return nil, err
	}
	return p.Likes, nil
}

// RemoveLike drops userID's like. ErrConflict means there was none.
func (s *PostStore) RemoveLike(ctx context.Context, postID, userID string) ([]models.Like, error) {
	pid, uid, err := postAndUser(postID, userID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": pid, "likes.user": uid}
	update := bson.M{"$pull": bson.M{"likes": bson.M{"user": uid}}}

	p, err := s.update(ctx, pid, filter, update)
	if err != nil {
		return nil, err
	}
	return p.Likes, nil
}

// AddComment prepends c, assigning its id and date.
func (s *PostStore) AddComment(ctx context.Context, postID string, c models.Comment) ([]models.Comment, error) {
	pid, err := objectID(postID)
	if err != nil {
		return nil, err
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Date.IsZero() {
		c.Date = time.Now().UTC()
	}
	update := bson.M{"$push": bson.M{"comments": bson.M{"$each": bson.A{c}, "$position": 0}}}

	p, err := s.update(ctx, pid, bson.M{"_id": pid}, update)
	if err != nil {
		return nil, err
	}
	return p.Comments, nil
}

// RemoveComment drops exactly the comment commentID. ErrConflict means the
// post has no such comment.
func (s *PostStore) RemoveComment(ctx context.Context, postID, commentID string) ([]models.Comment, error) {
	pid, err := objectID(postID)
	if err != nil {
		return nil, err
	}
	cid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return nil, ErrConflict
	}
	filter := bson.M{"_id": pid, "comments._id": cid}
	update := bson.M{"$pull": bson.M{"comments": bson.M{"_id": cid}}}

	p, err := s.update(ctx, pid, filter, update)
	if err != nil {
		return nil, err
	}
	return p.Comments, nil
}

// update applies a conditional update and tells a missing post (ErrNotFound)
// apart from an unmet condition (ErrConflict).
func (s *PostStore) update(ctx context.Context, pid primitive.ObjectID, filter, update bson.M) (*models.Post, error) {
	var p models.Post
	err := s.col.FindOneAndUpdate(ctx, filter, update, afterUpdate).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	n, err := s.col.CountDocuments(ctx, bson.M{"_id": pid})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}

func postAndUser(postID, userID string) (primitive.ObjectID, primitive.ObjectID, error) {
	pid, err := objectID(postID)
	if err != nil {
		return pid, primitive.NilObjectID, err
	}
	uid, err := objectID(userID)
	if err != nil {
		return pid, uid, err
	}
	return pid, uid, nil
}
