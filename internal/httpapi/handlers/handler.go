package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/common"
	"github.com/suPer8Hu/assessment-client/internal/logger"
	"github.com/suPer8Hu/assessment-client/internal/store"
)

type Handler struct {
	Orch   *assessment.Orchestrator
	Mirror store.Mirror // nil when mirroring is off
	log    *logger.Logger
}

func NewHandler(orch *assessment.Orchestrator, mirror store.Mirror, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{Orch: orch, Mirror: mirror, log: log.With("service", "httpapi")}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

// respond writes the view-model on success, or maps err to a status and envelope code.
// The user-facing message recorded in the view-model is preferred over err's text.
func (h *Handler) respond(c *gin.Context, err error) {
	vm := h.Orch.View()
	if err == nil {
		common.OK(c, vm)
		return
	}

	msg := err.Error()
	if vm.Error != nil {
		msg = *vm.Error
	}

	switch {
	case errors.Is(err, assessment.ErrDeleteCancelled):
		common.Fail(c, http.StatusConflict, 40903, "delete requires confirm=true")
	case errors.Is(err, assessment.ErrSendInFlight):
		common.Fail(c, http.StatusConflict, 40901, "a message is already being sent")
	case errors.Is(err, assessment.ErrNoActiveSession):
		common.Fail(c, http.StatusConflict, 40902, "no active session")
	case errors.Is(err, assessment.ErrInvalidPageSize):
		common.Fail(c, http.StatusBadRequest, 40002, err.Error())
	default:
		switch assessment.Classify(err) {
		case assessment.KindNotFound:
			common.Fail(c, http.StatusNotFound, 40404, msg)
		case assessment.KindAccessDenied:
			common.Fail(c, http.StatusForbidden, 40301, msg)
		case assessment.KindUnavailable:
			common.Fail(c, http.StatusServiceUnavailable, 50301, msg)
		default:
			h.log.Warn("backend operation failed", "path", c.FullPath(), "error", err)
			common.Fail(c, http.StatusBadGateway, 50201, msg)
		}
	}
}
