package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yatube",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yatube",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	// PostsCreated counts posts written through the create form.
	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yatube",
		Name:      "posts_created_total",
		Help:      "Total number of posts created.",
	})

	// CommentsCreated counts accepted comments.
	CommentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yatube",
		Name:      "comments_created_total",
		Help:      "Total number of comments created.",
	})

	// Follows counts follow and unfollow actions by kind.
	Follows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yatube",
		Name:      "follows_total",
		Help:      "Total number of follow and unfollow actions.",
	}, []string{"action"})
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		PostsCreated,
		CommentsCreated,
		Follows,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
