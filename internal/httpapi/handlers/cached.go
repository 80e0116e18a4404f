package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/common"
)

func (h *Handler) CachedSessions(c *gin.Context) {
	if h.Mirror == nil {
		common.Fail(c, http.StatusNotFound, 40405, "local mirror is disabled")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	sessions, err := h.Mirror.ListSessions(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("mirror list failed", "error", err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to read mirror")
		return
	}
	common.OK(c, gin.H{"sessions": sessions})
}

func (h *Handler) CachedMessages(c *gin.Context) {
	if h.Mirror == nil {
		common.Fail(c, http.StatusNotFound, 40405, "local mirror is disabled")
		return
	}
	id := c.Param("id")
	sess, err := h.Mirror.GetSession(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, assessment.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "session not mirrored")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to read mirror")
		return
	}
	msgs, err := h.Mirror.Messages(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to read mirror")
		return
	}
	common.OK(c, gin.H{"session": sess, "messages": msgs})
}
