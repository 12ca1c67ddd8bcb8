package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/msomdec/conduit/internal/service"
)

// Services bundles what the routes need.
type Services struct {
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Articles *service.ArticleService
	Comments *service.CommentService
	DB       Pinger
}

// RegisterRoutes sets up all HTTP routes on the given mux.
//
// Article update and delete, and comment delete, use optional auth so the
// service can report a missing article before a missing token.
func RegisterRoutes(mux *http.ServeMux, s Services) {
	users := NewUserHandler(s.Auth)
	profiles := NewProfileHandler(s.Profiles)
	articles := NewArticleHandler(s.Articles)
	comments := NewCommentHandler(s.Comments)

	required := func(h http.HandlerFunc) http.Handler { return RequireAuth(s.Auth, h) }
	optional := func(h http.HandlerFunc) http.Handler { return OptionalAuth(s.Auth, h) }

	mux.HandleFunc("GET /healthz", HandleHealthz(s.DB))

	mux.HandleFunc("POST /api/users", users.HandleRegister)
	mux.HandleFunc("POST /api/users/login", users.HandleLogin)
	mux.Handle("GET /api/user", required(users.HandleCurrent))
	mux.Handle("PUT /api/user", required(users.HandleUpdate))

	mux.Handle("GET /api/profiles/{username}", optional(profiles.HandleGet))
	mux.Handle("POST /api/profiles/{username}/follow", required(profiles.HandleFollow))
	mux.Handle("DELETE /api/profiles/{username}/follow", required(profiles.HandleUnfollow))

	mux.Handle("GET /api/articles", optional(articles.HandleList))
	mux.Handle("GET /api/articles/feed", required(articles.HandleFeed))
	mux.HandleFunc("GET /api/articles/tags", articles.HandleTags)
	mux.HandleFunc("GET /api/tags", articles.HandleTags)
	mux.Handle("POST /api/articles", required(articles.HandleCreate))
	mux.Handle("GET /api/articles/{slug}", optional(articles.HandleGet))
	mux.Handle("PUT /api/articles/{slug}", optional(articles.HandleUpdate))
	mux.Handle("DELETE /api/articles/{slug}", optional(articles.HandleDelete))
	mux.Handle("POST /api/articles/{slug}/favorite", required(articles.HandleFavorite))
	mux.Handle("DELETE /api/articles/{slug}/favorite", required(articles.HandleUnfavorite))

	mux.Handle("GET /api/articles/{slug}/comments", optional(comments.HandleList))
	mux.Handle("POST /api/articles/{slug}/comments", required(comments.HandleAdd))
	mux.Handle("DELETE /api/articles/{slug}/comments/{id}", optional(comments.HandleDelete))
}

// ServerOptions configure the middleware chain built by NewServer.
type ServerOptions struct {
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func (o ServerOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// NewServer wraps a mux holding the routes with the standard middleware
// chain.
func NewServer(s Services, opts ServerOptions) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, s)

	var h http.Handler = mux
	h = Timeout(opts.RequestTimeout, h)
	h = RequestLogger(opts.logger(), h)
	return SecurityHeaders(h)
}
