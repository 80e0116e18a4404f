package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/common"
	"github.com/suPer8Hu/assessment-client/internal/httpapi/handlers"
	"github.com/suPer8Hu/assessment-client/internal/httpapi/middleware"
	"github.com/suPer8Hu/assessment-client/internal/logger"
	"github.com/suPer8Hu/assessment-client/internal/store"
)

// NewRouter exposes the orchestrator's view-model and operations to a local front-end.
// The orchestrator should be built with assessment.ConfirmFromContext so that
// DELETE ?confirm=true acts as the confirmation.
func NewRouter(orch *assessment.Orchestrator, mirror store.Mirror, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))

	h := handlers.NewHandler(orch, mirror, log)

	r.GET("/ping", h.Ping)
	r.GET("/state", h.State)

	// session list
	r.POST("/sessions/refresh", h.RefreshSessions)
	r.POST("/sessions/paginate", h.Paginate)
	r.PUT("/sessions/page-size", h.ChangePageSize)

	// session lifecycle
	r.POST("/sessions", h.StartSession)
	r.POST("/sessions/:id/load", h.LoadSession)
	r.DELETE("/sessions/:id", h.DeleteSession)

	// conversation
	r.POST("/messages", h.SendMessage)
	r.POST("/progress/refresh", h.RefreshProgress)
	r.POST("/retry", h.Retry)

	// offline mirror
	r.GET("/cached/sessions", h.CachedSessions)
	r.GET("/cached/sessions/:id/messages", h.CachedMessages)
	return r
}
