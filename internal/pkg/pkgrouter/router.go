package pkgrouter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgerror"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkguid"
	"github.com/gin-gonic/gin"
)

const HeaderRequestID = "X-Request-Id"

type Handler func(ctx context.Context, r *http.Request) (any, error)

type Router struct {
	engine *gin.Engine
	uuid   pkguid.StringID
}

type successResponse struct {
	RequestID string `json:"request_id"`
	Data      any    `json:"data"`
}

type errorResponse struct {
	RequestID string            `json:"request_id"`
	Error     string            `json:"error"`
	Meta      map[string]string `json:"meta,omitempty"`
}

func NewRouter(uuid pkguid.StringID) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{RequestID: requestID(c, uuid), Error: "endpoint not found"})
	})
	return &Router{engine: engine, uuid: uuid}
}

func (r *Router) GET(path string, h Handler) {
	r.engine.GET(path, r.wrap(h))
}

func (r *Router) POST(path string, h Handler) {
	r.engine.POST(path, r.wrap(h))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *Router) wrap(h Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestID(c, r.uuid)
		c.Header(HeaderRequestID, id)

		data, err := h(c.Request.Context(), c.Request)
		if err != nil {
			e := pkgerror.From(err)
			if e.Type() == pkgerror.TypeServer {
				slog.ErrorContext(c.Request.Context(), "request failed",
					"request_id", id, "path", c.FullPath(), "error", err)
			}
			if retry, ok := e.Meta()["retry_after_seconds"]; ok {
				c.Header("Retry-After", retry)
			}
			c.JSON(e.Code().HTTPStatus(), errorResponse{RequestID: id, Error: e.Msg(), Meta: e.Meta()})
			return
		}

		c.JSON(http.StatusOK, successResponse{RequestID: id, Data: data})
	}
}

func requestID(c *gin.Context, uuid pkguid.StringID) string {
	if id := c.GetHeader(HeaderRequestID); id != "" {
		return id
	}
	return uuid.Generate()
}
