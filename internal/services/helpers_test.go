package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/anonto42/yatube/backend/internal/media"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories/memory"
	"github.com/anonto42/yatube/backend/validators"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t        *testing.T
	store    *memory.Store
	posts    *PostService
	comments *CommentService
	follows  *FollowService
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	v := validators.NewValidator()
	return &fixture{
		t:        t,
		store:    store,
		posts:    NewPostService(store, store, store, store, store, media.NewDiskStore(t.TempDir()), v),
		comments: NewCommentService(store, store, v),
		follows:  NewFollowService(store, store),
		accounts: NewAccountService(store, v),
	}
}

func (f *fixture) user(name string) *models.User {
	f.t.Helper()
	u := &models.User{Username: name}
	require.NoError(f.t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) group(slug string) *models.Group {
	f.t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	require.NoError(f.t, f.store.CreateGroup(context.Background(), g))
	return g
}

func (f *fixture) post(author *models.User, group *models.Group, text string) *models.Post {
	f.t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(f.t, f.store.CreatePost(context.Background(), p))
	return p
}

func (f *fixture) bulkPosts(author *models.User, group *models.Group, n int) {
	f.t.Helper()
	for i := 0; i < n; i++ {
		f.post(author, group, fmt.Sprintf("post %d", i))
	}
}

func groupID(g *models.Group) string {
	return fmt.Sprint(g.ID)
}
