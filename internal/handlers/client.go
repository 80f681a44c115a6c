package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freelance-tracker/internal/models"
	"freelance-tracker/internal/services"
)

// ClientHandler serves the token-addressed client portal. Every failure to
// resolve the token looks the same to the caller.
type ClientHandler struct {
	tracker *services.Tracker
}

func NewClientHandler(tracker *services.Tracker) *ClientHandler {
	return &ClientHandler{tracker: tracker}
}

// View godoc
// @Summary     Client view of a project
// @Tags        client
// @Produce     json
// @Param       token path string true "Project access token"
// @Success     200 {object} models.ProjectDetailResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /client/{token} [get]
func (h *ClientHandler) View(c *gin.Context) {
	view, err := h.tracker.ClientView(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectDetailResponse(h.tracker, view, clientView))
}

// Comment godoc
// @Summary     Comment on an order
// @Description Overwrites the previous comment. Closed once the order is COMPLETED or APPROVED.
// @Tags        client
// @Accept      json
// @Produce     json
// @Param       token path string true "Project access token"
// @Param       order_id path string true "Order ID (UUID)"
// @Param       request body models.CommentRequest true "Comment"
// @Success     200 {object} models.OrderResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /client/{token}/orders/{order_id}/comment [post]
func (h *ClientHandler) Comment(c *gin.Context) {
	orderID, ok := uuidParam(c, "order_id", "order not found")
	if !ok {
		return
	}

	var req models.CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	o, err := h.tracker.SubmitClientComment(c.Request.Context(), c.Param("token"), orderID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(h.tracker, o))
}

// Approve godoc
// @Summary     Approve an order
// @Tags        client
// @Produce     json
// @Param       token path string true "Project access token"
// @Param       order_id path string true "Order ID (UUID)"
// @Success     200 {object} models.OrderResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /client/{token}/orders/{order_id}/approve [post]
func (h *ClientHandler) Approve(c *gin.Context) {
	orderID, ok := uuidParam(c, "order_id", "order not found")
	if !ok {
		return
	}

	o, err := h.tracker.ApproveOrder(c.Request.Context(), c.Param("token"), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(h.tracker, o))
}
