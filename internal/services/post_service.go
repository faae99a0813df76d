package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/anonto42/yatube/backend/internal/media"
	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/pagination"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/validators"
)

const (
	msgInvalidChoice = "Select a valid choice."
	msgInvalidImage  = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

// PostInput is a submitted post form. Image is nil when no file was uploaded.
type PostInput struct {
	models.PostRequest
	Image io.Reader
}

// Profile is an author's page as seen by a viewer.
type Profile struct {
	Author         *models.User
	Page           pagination.Page[models.Post]
	Following      bool
	FollowersCount int64
	FollowingCount int64
}

// PostService serves post listings and the post create/edit flows.
type PostService struct {
	posts    repositories.PostRepository
	groups   repositories.GroupRepository
	users    repositories.UserRepository
	comments repositories.CommentRepository
	follows  repositories.FollowRepository
	media    media.Store
	validate Validator
}

func NewPostService(
	posts repositories.PostRepository,
	groups repositories.GroupRepository,
	users repositories.UserRepository,
	comments repositories.CommentRepository,
	follows repositories.FollowRepository,
	store media.Store,
	validate Validator,
) *PostService {
	return &PostService{
		posts:    posts,
		groups:   groups,
		users:    users,
		comments: comments,
		follows:  follows,
		media:    store,
		validate: validate,
	}
}

func (s *PostService) list(ctx context.Context, filter models.PostFilter, page string) (pagination.Page[models.Post], error) {
	return pagination.Fetch(ctx, page,
		func(ctx context.Context) (int64, error) { return s.posts.CountPosts(ctx, filter) },
		func(ctx context.Context, offset, limit int) ([]models.Post, error) {
			return s.posts.ListPosts(ctx, filter, offset, limit)
		},
	)
}

// Index pages through all posts, newest first.
func (s *PostService) Index(ctx context.Context, page string) (pagination.Page[models.Post], error) {
	return s.list(ctx, models.PostFilter{}, page)
}

// GroupPosts pages through the posts of the group with slug.
func (s *PostService) GroupPosts(ctx context.Context, slug, page string) (*models.Group, pagination.Page[models.Post], error) {
	group, err := s.groups.GetGroupBySlug(ctx, slug)
	if err != nil {
		return nil, pagination.Page[models.Post]{}, mapNotFound(err)
	}
	p, err := s.list(ctx, models.PostFilter{GroupID: &group.ID}, page)
	return group, p, err
}

// Profile pages through the posts of username. viewer may be nil.
func (s *PostService) Profile(ctx context.Context, viewer *models.User, username, page string) (*Profile, error) {
	author, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, mapNotFound(err)
	}
	p, err := s.list(ctx, models.PostFilter{AuthorID: &author.ID}, page)
	if err != nil {
		return nil, err
	}

	profile := &Profile{Author: author, Page: p}
	if viewer != nil {
		if profile.Following, err = s.follows.IsFollowing(ctx, viewer.ID, author.ID); err != nil {
			return nil, err
		}
	}
	if profile.FollowersCount, err = s.follows.GetFollowersCount(ctx, author.ID); err != nil {
		return nil, err
	}
	if profile.FollowingCount, err = s.follows.GetFollowingCount(ctx, author.ID); err != nil {
		return nil, err
	}
	return profile, nil
}

// Feed pages through the posts of every author viewer follows.
func (s *PostService) Feed(ctx context.Context, viewer *models.User, page string) (pagination.Page[models.Post], error) {
	if viewer == nil {
		return pagination.Page[models.Post]{}, ErrForbidden
	}
	return s.list(ctx, models.PostFilter{FollowerID: &viewer.ID}, page)
}

// Get returns a post with author and group.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	return post, mapNotFound(err)
}

// Detail returns a post and all of its comments, oldest first.
func (s *PostService) Detail(ctx context.Context, id uint) (*models.Post, []models.Comment, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.GetCommentsByPostID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return post, comments, nil
}

// Groups lists the choices for the post form.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	return s.groups.ListGroups(ctx)
}

// Create validates in and stores a post owned by actor.
func (s *PostService) Create(ctx context.Context, actor *models.User, in PostInput) (*models.Post, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	post := &models.Post{AuthorID: actor.ID}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	post.Author = *actor

	metrics.PostsCreated.Inc()
	slog.Info("post created", "post_id", post.ID, "author", actor.Username)
	return post, nil
}

// Update replaces text, group and, when uploaded, image of a post owned by actor.
// Posts of other users yield ErrForbidden and are left untouched.
func (s *PostService) Update(ctx context.Context, actor *models.User, id uint, in PostInput) (*models.Post, error) {
	post, err := s.Editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", mapNotFound(err))
	}
	return post, nil
}

// Delete removes a post owned by actor along with its comments.
func (s *PostService) Delete(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	post, err := s.Editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}
	slog.Info("post deleted", "post_id", id, "author", actor.Username)
	return post, nil
}

// Editable loads post id and checks that actor authored it. On ErrForbidden
// the post is still returned.
func (s *PostService) Editable(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || post.AuthorID != actor.ID {
		return post, ErrForbidden
	}
	return post, nil
}

// apply validates in and copies it onto post. post is not modified on failure.
func (s *PostService) apply(ctx context.Context, post *models.Post, in PostInput) error {
	req := in.PostRequest
	req.Text = strings.TrimSpace(req.Text)
	req.Group = strings.TrimSpace(req.Group)

	fe := validators.FieldErrors{}
	if err := collect(fe, s.validate.Validate(req)); err != nil {
		return err
	}

	var groupID *uint
	if req.Group != "" && fe.Get("group") == "" {
		id, err := strconv.ParseUint(req.Group, 10, 64)
		if err != nil {
			fe.Add("group", msgInvalidChoice)
		} else if group, err := s.groups.GetGroupByID(ctx, uint(id)); err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			fe.Add("group", msgInvalidChoice)
		} else {
			groupID = &group.ID
		}
	}
	if len(fe) > 0 {
		return fe
	}

	image := post.Image
	if in.Image != nil {
		name, err := media.SaveImage(ctx, s.media, in.Image)
		if errors.Is(err, media.ErrNotImage) {
			fe.Add("image", msgInvalidImage)
			return fe
		}
		if err != nil {
			return err
		}
		image = name
	}

	post.Text = req.Text
	post.GroupID = groupID
	post.Group = nil
	post.Image = image
	return nil
}
