package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/validators"
)

// CommentService adds comments to posts.
type CommentService struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	validate Validator
}

func NewCommentService(comments repositories.CommentRepository, posts repositories.PostRepository, validate Validator) *CommentService {
	return &CommentService{comments: comments, posts: posts, validate: validate}
}

// Add stores a comment by actor on post postID. An unknown post yields
// ErrNotFound; invalid text yields validators.FieldErrors.
func (s *CommentService) Add(ctx context.Context, actor *models.User, postID uint, req models.CommentRequest) (*models.Comment, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, mapNotFound(err)
	}

	req.Text = strings.TrimSpace(req.Text)
	fe := validators.FieldErrors{}
	if err := collect(fe, s.validate.Validate(req)); err != nil {
		return nil, err
	}
	if len(fe) > 0 {
		return nil, fe
	}

	comment := &models.Comment{PostID: postID, AuthorID: actor.ID, Text: req.Text}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", mapNotFound(err))
	}
	comment.Author = *actor
	metrics.CommentsCreated.Inc()
	return comment, nil
}
