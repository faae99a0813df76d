// Package memory is a process-local implementation of every repository
// interface. It backs STORAGE_DRIVER=memory and the handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
)

var (
	_ repositories.UserRepository    = (*Store)(nil)
	_ repositories.GroupRepository   = (*Store)(nil)
	_ repositories.PostRepository    = (*Store)(nil)
	_ repositories.CommentRepository = (*Store)(nil)
	_ repositories.FollowRepository  = (*Store)(nil)
)

// Store keeps all tables in maps guarded by one lock.
type Store struct {
	mu       sync.RWMutex
	seq      uint
	now      func() time.Time
	users    map[uint]models.User
	groups   map[uint]models.Group
	posts    map[uint]models.Post
	comments map[uint]models.Comment
	follows  map[uint]models.Follow
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		now:      time.Now,
		users:    map[uint]models.User{},
		groups:   map[uint]models.Group{},
		posts:    map[uint]models.Post{},
		comments: map[uint]models.Comment{},
		follows:  map[uint]models.Follow{},
	}
}

func (s *Store) nextID() uint {
	s.seq++
	return s.seq
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return repositories.ErrDuplicate
		}
		if user.FirebaseUID != nil && u.FirebaseUID != nil && *u.FirebaseUID == *user.FirebaseUID {
			return repositories.ErrDuplicate
		}
	}
	user.ID = s.nextID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *Store) GetUserByFirebaseUID(_ context.Context, firebaseUID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

// --- groups ---

func (s *Store) CreateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Slug == group.Slug {
			return repositories.ErrDuplicate
		}
	}
	group.ID = s.nextID()
	s.groups[group.ID] = *group
	return nil
}

func (s *Store) GetGroupByID(_ context.Context, id uint) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &g, nil
}

func (s *Store) GetGroupBySlug(_ context.Context, slug string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if g.Slug == slug {
			return &g, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *Store) ListGroups(_ context.Context) ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := make([]models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

// --- posts ---

func (s *Store) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = s.nextID()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	stored := *post
	stored.Author = models.User{}
	stored.Group = nil
	stored.Comments = nil
	s.posts[post.ID] = stored
	return nil
}

func (s *Store) GetPostByID(_ context.Context, id uint) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	p = s.withRelations(p)
	return &p, nil
}

func (s *Store) ListPosts(_ context.Context, filter models.PostFilter, offset, limit int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := s.matching(filter)
	if offset > len(posts) {
		offset = len(posts)
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	page := make([]models.Post, 0, end-offset)
	for _, p := range posts[offset:end] {
		page = append(page, s.withRelations(p))
	}
	return page, nil
}

func (s *Store) CountPosts(_ context.Context, filter models.PostFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(filter))), nil
}

func (s *Store) UpdatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.posts[post.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Text = post.Text
	stored.GroupID = copyID(post.GroupID)
	stored.Image = post.Image
	s.posts[post.ID] = stored
	return nil
}

func (s *Store) DeletePost(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

// matching returns the posts selected by filter, newest first. Callers hold the lock.
func (s *Store) matching(filter models.PostFilter) []models.Post {
	var followed map[uint]bool
	if filter.FollowerID != nil {
		followed = map[uint]bool{}
		for _, f := range s.follows {
			if f.UserID == *filter.FollowerID {
				followed[f.AuthorID] = true
			}
		}
	}

	posts := []models.Post{}
	for _, p := range s.posts {
		if filter.AuthorID != nil && p.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.GroupID != nil && (p.GroupID == nil || *p.GroupID != *filter.GroupID) {
			continue
		}
		if followed != nil && !followed[p.AuthorID] {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts
}

func (s *Store) withRelations(p models.Post) models.Post {
	p.Author = s.users[p.AuthorID]
	p.GroupID = copyID(p.GroupID)
	if p.GroupID != nil {
		if g, ok := s.groups[*p.GroupID]; ok {
			p.Group = &g
		}
	}
	return p
}

// --- comments ---

func (s *Store) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[comment.PostID]; !ok {
		return repositories.ErrNotFound
	}
	comment.ID = s.nextID()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	stored := *comment
	stored.Author = models.User{}
	s.comments[comment.ID] = stored
	return nil
}

func (s *Store) GetCommentsByPostID(_ context.Context, postID uint) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comments := []models.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			c.Author = s.users[c.AuthorID]
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func (s *Store) CountComments(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.comments)), nil
}

// --- follows ---

func (s *Store) GetOrCreateFollow(_ context.Context, userID, authorID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.follows {
		if f.UserID == userID && f.AuthorID == authorID {
			return false, nil
		}
	}
	id := s.nextID()
	s.follows[id] = models.Follow{ID: id, UserID: userID, AuthorID: authorID, CreatedAt: s.now()}
	return true, nil
}

func (s *Store) DeleteFollow(_ context.Context, userID, authorID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.follows {
		if f.UserID == userID && f.AuthorID == authorID {
			delete(s.follows, id)
		}
	}
	return nil
}

func (s *Store) IsFollowing(_ context.Context, userID, authorID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.follows {
		if f.UserID == userID && f.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetFollowersCount(_ context.Context, authorID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, f := range s.follows {
		if f.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetFollowingCount(_ context.Context, userID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, f := range s.follows {
		if f.UserID == userID {
			n++
		}
	}
	return n, nil
}

// CountFollows returns the total number of follow rows.
func (s *Store) CountFollows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.follows)
}

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
