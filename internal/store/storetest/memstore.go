// Package storetest provides an in-memory stand-in for the MongoDB stores
// with the same method sets and error semantics, for handler tests. It is
// not for use outside _test.go files.
package storetest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/devconnector/backend/internal/models"
	"github.com/ayush/devconnector/backend/internal/store"
)

type Store struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	profiles map[primitive.ObjectID]models.Profile
	posts    []models.Post
}

func New() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]models.User),
		profiles: make(map[primitive.ObjectID]models.Profile),
	}
}

func oid(id string) (primitive.ObjectID, error) {
	o, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return o, store.ErrNotFound
	}
	return o, nil
}

// users

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	if u.Date.IsZero() {
		u.Date = time.Now().UTC()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	o, err := oid(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[o]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[primitive.ObjectID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *Store) SetAvatar(_ context.Context, id, url, key string) error {
	o, err := oid(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[o]
	if !ok {
		return store.ErrNotFound
	}
	u.Avatar, u.AvatarKey = url, key
	s.users[o] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	o, err := oid(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, o)
	return nil
}

// UserCount reports how many users exist.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// profiles

func cloneProfile(p models.Profile) *models.Profile {
	p.Skills = slices.Clone(p.Skills)
	p.Experience = slices.Clone(p.Experience)
	p.Education = slices.Clone(p.Education)
	return &p
}

func (s *Store) GetProfileByUser(_ context.Context, userID string) (*models.Profile, error) {
	o, err := oid(userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[o]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *Store) ListProfiles(context.Context) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpsertProfile(_ context.Context, p *models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[p.User]
	next := *p
	if ok {
		next.ID, next.Date = existing.ID, existing.Date
		next.Experience, next.Education = existing.Experience, existing.Education
	} else {
		next.ID = primitive.NewObjectID()
		next.Date = time.Now().UTC()
		next.Experience, next.Education = []models.Experience{}, []models.Education{}
	}
	s.profiles[p.User] = next
	return cloneProfile(next), nil
}

func (s *Store) DeleteProfileByUser(_ context.Context, userID string) error {
	o, err := oid(userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, o)
	return nil
}

func (s *Store) editProfile(userID string, fn func(*models.Profile) error) (*models.Profile, error) {
	o, err := oid(userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[o]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	s.profiles[o] = p
	return cloneProfile(p), nil
}

func (s *Store) AddExperience(_ context.Context, userID string, exp models.Experience) (*models.Profile, error) {
	return s.editProfile(userID, func(p *models.Profile) error {
		p.Experience = append([]models.Experience{exp}, p.Experience...)
		return nil
	})
}

func (s *Store) RemoveExperience(_ context.Context, userID, expID string) (*models.Profile, error) {
	return s.editProfile(userID, func(p *models.Profile) error {
		i := slices.IndexFunc(p.Experience, func(e models.Experience) bool { return e.ID.Hex() == expID })
		if i < 0 {
			return store.ErrConflict
		}
		p.Experience = slices.Delete(slices.Clone(p.Experience), i, i+1)
		return nil
	})
}

func (s *Store) AddEducation(_ context.Context, userID string, edu models.Education) (*models.Profile, error) {
	return s.editProfile(userID, func(p *models.Profile) error {
		p.Education = append([]models.Education{edu}, p.Education...)
		return nil
	})
}

func (s *Store) RemoveEducation(_ context.Context, userID, eduID string) (*models.Profile, error) {
	return s.editProfile(userID, func(p *models.Profile) error {
		i := slices.IndexFunc(p.Education, func(e models.Education) bool { return e.ID.Hex() == eduID })
		if i < 0 {
			return store.ErrConflict
		}
		p.Education = slices.Delete(slices.Clone(p.Education), i, i+1)
		return nil
	})
}

// posts

func clonePost(p models.Post) *models.Post {
	p.Likes = slices.Clone(p.Likes)
	p.Comments = slices.Clone(p.Comments)
	return &p
}

func (s *Store) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	if p.Likes == nil {
		p.Likes = []models.Like{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	s.posts = append(s.posts, *clonePost(*p))
	return nil
}

// ListPosts returns newest first; posts with equal dates come out in
// reverse insertion order.
func (s *Store) ListPosts(context.Context) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, 0, len(s.posts))
	for i := len(s.posts) - 1; i >= 0; i-- {
		out = append(out, *clonePost(s.posts[i]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) indexOfPost(id string) (int, error) {
	o, err := oid(id)
	if err != nil {
		return -1, err
	}
	i := slices.IndexFunc(s.posts, func(p models.Post) bool { return p.ID == o })
	if i < 0 {
		return -1, store.ErrNotFound
	}
	return i, nil
}

func (s *Store) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOfPost(id)
	if err != nil {
		return nil, err
	}
	return clonePost(s.posts[i]), nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOfPost(id)
	if err != nil {
		return err
	}
	s.posts = slices.Delete(s.posts, i, i+1)
	return nil
}

func (s *Store) DeletePostsByUser(_ context.Context, userID string) error {
	o, err := oid(userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = slices.DeleteFunc(s.posts, func(p models.Post) bool { return p.User == o })
	return nil
}

func (s *Store) editPost(postID string, fn func(*models.Post) error) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOfPost(postID)
	if err != nil {
		return nil, err
	}
	p := clonePost(s.posts[i])
	if err := fn(p); err != nil {
		return nil, err
	}
	s.posts[i] = *p
	return clonePost(*p), nil
}

func (s *Store) AddLike(_ context.Context, postID, userID string) ([]models.Like, error) {
	uid, err := oid(userID)
	if err != nil {
		return nil, err
	}
	p, err := s.editPost(postID, func(p *models.Post) error {
		if slices.ContainsFunc(p.Likes, func(l models.Like) bool { return l.User == uid }) {
			return store.ErrConflict
		}
		p.Likes = append([]models.Like{{User: uid}}, p.Likes...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.Likes, nil
}

func (s *Store) RemoveLike(_ context.Context, postID, userID string) ([]models.Like, error) {
	uid, err := oid(userID)
	if err != nil {
		return nil, err
	}
	p, err := s.editPost(postID, func(p *models.Post) error {
		before := len(p.Likes)
		p.Likes = slices.DeleteFunc(p.Likes, func(l models.Like) bool { return l.User == uid })
		if len(p.Likes) == before {
			return store.ErrConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.Likes, nil
}

func (s *Store) AddComment(_ context.Context, postID string, c models.Comment) ([]models.Comment, error) {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Date.IsZero() {
		c.Date = time.Now().UTC()
	}
	p, err := s.editPost(postID, func(p *models.Post) error {
		p.Comments = append([]models.Comment{c}, p.Comments...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.Comments, nil
}

func (s *Store) RemoveComment(_ context.Context, postID, commentID string) ([]models.Comment, error) {
	p, err := s.editPost(postID, func(p *models.Post) error {
		before := len(p.Comments)
		p.Comments = slices.DeleteFunc(p.Comments, func(c models.Comment) bool { return c.ID.Hex() == commentID })
		if len(p.Comments) == before {
			return store.ErrConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.Comments, nil
}
