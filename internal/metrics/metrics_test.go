package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/posts/:id/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/posts/:id/", "200"))
	for _, id := range []string{"1", "2"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/posts/"+id+"/", nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/posts/:id/", "200"))

	assert.Equal(t, before+2, after)
}

func TestHandlerExposesRegistry(t *testing.T) {
	PostsCreated.Inc()
	CommentsCreated.Inc()
	httpRequests.WithLabelValues(http.MethodGet, "/", "200").Inc()
	httpDuration.WithLabelValues(http.MethodGet, "/").Observe(0.01)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{
		"yatube_http_requests_total",
		"yatube_http_request_duration_seconds",
		"yatube_posts_created_total",
		"yatube_comments_created_total",
	} {
		assert.Contains(t, rec.Body.String(), name)
	}
}
