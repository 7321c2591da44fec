package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/devconnector/backend/internal/models"
)

const profilesCollection = "profiles"

// ProfileStore handles profile documents in MongoDB.
type ProfileStore struct {
	col *mongo.Collection
}

func NewProfileStore(db *mongo.Database) *ProfileStore {
	return &ProfileStore{col: db.Collection(profilesCollection)}
}

func (s *ProfileStore) GetProfileByUser(ctx context.Context, userID string) (*models.Profile, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	var p models.Profile
	if err := s.col.FindOne(ctx, bson.M{"user": oid}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *ProfileStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	cur, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var profiles []models.Profile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpsertProfile creates the profile for p.User or overwrites its editable
// fields. Experience and education entries are left untouched.
func (s *ProfileStore) UpsertProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	update := bson.M{
		"$set": bson.M{
			"company":        p.Company,
			"website":        p.Website,
			"location":       p.Location,
			"status":         p.Status,
			"skills":         p.Skills,
			"bio":            p.Bio,
			"githubusername": p.GitHubUsername,
			"social":         p.Social,
		},
		"$setOnInsert": bson.M{
			"date":       time.Now().UTC(),
			"experience": []models.Experience{},
			"education":  []models.Education{},
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.Profile
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"user": p.User}, update, opts).Decode(&out); err != nil {
		return nil, fmt.Errorf("mongo upsert profile: %w", err)
	}
	return &out, nil
}

func (s *ProfileStore) DeleteProfileByUser(ctx context.Context, userID string) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}
	_, err = s.col.DeleteOne(ctx, bson.M{"user": oid})
	return err
}

// AddExperience prepends exp to the user's experience list.
func (s *ProfileStore) AddExperience(ctx context.Context, userID string, exp models.Experience) (*models.Profile, error) {
	return s.push(ctx, userID, "experience", exp)
}

func (s *ProfileStore) RemoveExperience(ctx context.Context, userID, expID string) (*models.Profile, error) {
	return s.pull(ctx, userID, "experience", expID)
}

// AddEducation prepends edu to the user's education list.
func (s *ProfileStore) AddEducation(ctx context.Context, userID string, edu models.Education) (*models.Profile, error) {
	return s.push(ctx, userID, "education", edu)
}

func (s *ProfileStore) RemoveEducation(ctx context.Context, userID, eduID string) (*models.Profile, error) {
	return s.pull(ctx, userID, "education", eduID)
}

func (s *ProfileStore) push(ctx context.Context, userID, field string, item any) (*models.Profile, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$push": bson.M{field: bson.M{"$each": bson.A{item}, "$position": 0}}}

	var p models.Profile
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"user": oid}, update, afterUpdate).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// pull removes the entry itemID from field. A missing entry is ErrConflict.
func (s *ProfileStore) pull(ctx context.Context, userID, field, itemID string) (*models.Profile, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	iid, err := objectID(itemID)
	if err != nil {
		return nil, ErrConflict
	}
	filter := bson.M{"user": oid, field + "._id": iid}
	update := bson.M{"$pull": bson.M{field: bson.M{"_id": iid}}}

	var p models.Profile
	err = s.col.FindOneAndUpdate(ctx, filter, update, afterUpdate).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if _, err := s.GetProfileByUser(ctx, userID); err != nil {
		return nil, err
	}
	return nil, ErrConflict
}
