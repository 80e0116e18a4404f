package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/common"
)

func (h *Handler) State(c *gin.Context) {
	common.OK(c, h.Orch.View())
}

func (h *Handler) RefreshSessions(c *gin.Context) {
	h.respond(c, h.Orch.Refresh(c.Request.Context()))
}

type paginateReq struct {
	Target string `json:"target" binding:"required"`
}

func (h *Handler) Paginate(c *gin.Context) {
	var req paginateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	target, err := assessment.ParsePageTarget(req.Target)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 40001, err.Error())
		return
	}
	h.respond(c, h.Orch.Paginate(c.Request.Context(), target))
}

type pageSizeReq struct {
	PageSize int `json:"page_size" binding:"required"`
}

func (h *Handler) ChangePageSize(c *gin.Context) {
	var req pageSizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	h.respond(c, h.Orch.ChangePageSize(c.Request.Context(), req.PageSize))
}

func (h *Handler) StartSession(c *gin.Context) {
	_, err := h.Orch.StartNew(c.Request.Context())
	h.respond(c, err)
}

func (h *Handler) LoadSession(c *gin.Context) {
	h.respond(c, h.Orch.Load(c.Request.Context(), c.Param("id")))
}

// DeleteSession needs ?confirm=true; the query flag is the user's answer to the prompt.
func (h *Handler) DeleteSession(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	ctx := assessment.WithConfirmation(c.Request.Context(), confirmed)
	h.respond(c, h.Orch.Delete(ctx, c.Param("id")))
}

type sendMessageReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	_, err := h.Orch.Send(c.Request.Context(), req.Message)
	h.respond(c, err)
}

func (h *Handler) RefreshProgress(c *gin.Context) {
	_, err := h.Orch.RefreshProgress(c.Request.Context())
	h.respond(c, err)
}

func (h *Handler) Retry(c *gin.Context) {
	h.respond(c, h.Orch.Retry(c.Request.Context()))
}
