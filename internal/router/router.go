package router

import (
	"fmt"
	"log/slog"

	"github.com/anonto42/yatube/backend/internal/auth"
	"github.com/anonto42/yatube/backend/internal/cache"
	"github.com/anonto42/yatube/backend/internal/handlers"
	"github.com/anonto42/yatube/backend/internal/media"
	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/render"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/internal/services"
	"github.com/anonto42/yatube/backend/validators"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Users    repositories.UserRepository
	Groups   repositories.GroupRepository
	Posts    repositories.PostRepository
	Comments repositories.CommentRepository
	Follows  repositories.FollowRepository

	Media      media.Store
	IndexCache cache.Store
	Sessions   *auth.SessionManager

	// Firebase enables /auth/firebase/ when set.
	Firebase      middleware.TokenVerifier
	SecureCookies bool
}

// New builds a fully wired echo instance.
func New(d Dependencies) (*echo.Echo, error) {
	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	SetupMiddleware(e, d)
	SetupRoutes(e, d)
	return e, nil
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, d Dependencies) {
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLogger())
	e.Use(eMiddleware.Recover())
	e.Use(middleware.LoadUser(d.Sessions, d.Users))
	slog.Info("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Dependencies) {
	validate := validators.NewValidator()
	loginRequired := middleware.LoginRequired()
	root := e.Group("")

	e.GET("/health", handlers.HealthCheck)

	// --- Services ---
	postService := services.NewPostService(d.Posts, d.Groups, d.Users, d.Comments, d.Follows, d.Media, validate)
	commentService := services.NewCommentService(d.Comments, d.Posts, validate)
	followService := services.NewFollowService(d.Follows, d.Users)
	accountService := services.NewAccountService(d.Users, validate)

	// Auth routes
	authHandler := handlers.NewAuthHandler(accountService, d.Sessions, d.Firebase, d.SecureCookies)
	authHandler.RegisterAuthRoutes(e.Group("/auth"))
	slog.Info("Auth routes configured.", "firebase", d.Firebase != nil)

	// Post routes
	postHandler := handlers.NewPostHandler(postService)
	postHandler.RegisterPostRoutes(root, loginRequired, cache.Middleware(d.IndexCache, IndexCacheKey))
	slog.Info("Post routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(commentService)
	commentHandler.RegisterCommentRoutes(root, loginRequired)
	slog.Info("Comment routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followService, postService)
	followHandler.RegisterFollowRoutes(root, loginRequired)
	slog.Info("Follow routes configured.")

	// Media routes
	mediaHandler := handlers.NewMediaHandler(d.Media)
	mediaHandler.RegisterMediaRoutes(root)
	slog.Info("Media routes configured.")

	slog.Info("All routes configured.")
}

// IndexCacheKey keys cached index pages by URI and viewer, so signed-in
// users never see a page rendered for someone else.
func IndexCacheKey(c echo.Context) string {
	key := "index:" + c.Request().URL.RequestURI()
	if user := middleware.CurrentUser(c); user != nil {
		key += fmt.Sprintf(":user:%d", user.ID)
	}
	return key
}
