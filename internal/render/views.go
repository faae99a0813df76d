package render

import (
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/pagination"
	"github.com/anonto42/yatube/backend/validators"
)

// Page names.
const (
	IndexPage    = "posts/index.html"
	GroupPage    = "posts/group_list.html"
	ProfilePage  = "posts/profile.html"
	FollowPage   = "posts/follow.html"
	DetailPage   = "posts/post_detail.html"
	PostFormPage = "posts/create_post.html"
	LoginPage    = "users/login.html"
	SignupPage   = "users/signup.html"
	ErrorPage    = "core/error.html"
)

// Base carries what the layout needs on every page.
type Base struct {
	User *models.User
}

type IndexView struct {
	Base
	Page pagination.Page[models.Post]
}

type GroupView struct {
	Base
	Group *models.Group
	Page  pagination.Page[models.Post]
}

type ProfileView struct {
	Base
	Author         *models.User
	Page           pagination.Page[models.Post]
	Following      bool
	FollowersCount int64
	FollowingCount int64
}

// Self reports whether the viewer is looking at their own profile.
func (v ProfileView) Self() bool {
	return v.User != nil && v.Author != nil && v.User.ID == v.Author.ID
}

type FollowView struct {
	Base
	Page pagination.Page[models.Post]
}

type DetailView struct {
	Base
	Post     *models.Post
	Comments []models.Comment
	Form     models.CommentRequest
}

// CanEdit reports whether the viewer authored the post.
func (v DetailView) CanEdit() bool {
	return v.User != nil && v.Post != nil && v.User.ID == v.Post.AuthorID
}

// PostFormView backs both the create and the edit form. Post is set when editing.
type PostFormView struct {
	Base
	Form   models.PostRequest
	Errors validators.FieldErrors
	Groups []models.Group
	Post   *models.Post
	IsEdit bool
}

type LoginView struct {
	Base
	Username        string
	Next            string
	Error           string
	FirebaseEnabled bool
}

type SignupView struct {
	Base
	Form   models.SignupRequest
	Errors validators.FieldErrors
}

type ErrorView struct {
	Base
	Code    int
	Message string
}
