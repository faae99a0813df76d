package cache

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderCache reports HIT or MISS on cached routes.
const HeaderCache = "X-Cache"

type entry struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type teeWriter struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// KeyFunc derives the cache key of a request.
type KeyFunc func(c echo.Context) string

// Middleware serves GET responses from store and stores successful ones.
// Store failures are logged and the request is handled normally.
func Middleware(store Store, key KeyFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			k := key(c)

			if raw, ok, err := store.Get(ctx, k); err != nil {
				slog.Warn("cache read failed", "key", k, "error", err)
			} else if ok {
				var e entry
				if err := json.Unmarshal(raw, &e); err == nil {
					c.Response().Header().Set(HeaderCache, "HIT")
					return c.Blob(http.StatusOK, e.ContentType, e.Body)
				}
			}

			res := c.Response()
			tee := &teeWriter{ResponseWriter: res.Writer}
			res.Writer = tee
			res.Header().Set(HeaderCache, "MISS")
			err := next(c)
			res.Writer = tee.ResponseWriter
			if err != nil || res.Status != http.StatusOK {
				return err
			}

			raw, mErr := json.Marshal(entry{
				ContentType: res.Header().Get(echo.HeaderContentType),
				Body:        tee.buf.Bytes(),
			})
			if mErr == nil {
				if sErr := store.Set(ctx, k, raw); sErr != nil {
					slog.Warn("cache write failed", "key", k, "error", sErr)
				}
			}
			return nil
		}
	}
}
