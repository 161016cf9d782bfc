package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"postboard/internal/domain"
	"postboard/internal/metrics"
	"postboard/internal/service"
)

// TokenVerifier resolves a bearer token to the calling user.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// Options carries the dependencies of Handler. Metrics, Gatherer and
// AuthLimiter are optional.
type Options struct {
	Users        service.UserService
	Posts        service.PostService
	Interactions service.InteractionService
	Tokens       TokenVerifier
	Logger       *logrus.Logger
	Metrics      *metrics.Collector
	Gatherer     prometheus.Gatherer
	AuthLimiter  *RateLimiter
	Production   bool
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users        service.UserService
	posts        service.PostService
	interactions service.InteractionService
	tokens       TokenVerifier
	logger       *logrus.Logger
	metrics      *metrics.Collector
	gatherer     prometheus.Gatherer
	limiter      *RateLimiter
	production   bool
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:        opts.Users,
		posts:        opts.Posts,
		interactions: opts.Interactions,
		tokens:       opts.Tokens,
		logger:       logger,
		metrics:      opts.Metrics,
		gatherer:     opts.Gatherer,
		limiter:      opts.AuthLimiter,
		production:   opts.Production,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger(), h.recovery(), corsMiddleware())
	router.NoRoute(h.notFound)

	router.GET("/health", func(c *gin.Context) {
		respond(c, http.StatusOK, "OK", gin.H{"status": "ok"})
	})
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(h.gatherer)))
	}

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.rateLimit(), h.register)
		auth.POST("/login", h.rateLimit(), h.login)
		auth.GET("/me", h.authRequired(), h.me)
		auth.PUT("/push-token", h.authRequired(), h.updatePushToken)
	}

	posts := router.Group("/posts", h.authRequired())
	{
		posts.POST("", h.createPost)
		posts.GET("", h.listPosts)
		posts.GET("/:id", h.getPost)
		posts.POST("/:id/like", h.toggleLike)
		posts.POST("/:id/comment", h.addComment)
		posts.GET("/:id/comments", h.listComments)
	}
}

// pageRequest reads page and limit; values that are not integers count as absent.
func pageRequest(c *gin.Context) domain.PageRequest {
	return domain.PageRequest{
		Page:  queryInt(c, "page"),
		Limit: queryInt(c, "limit"),
	}
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
