package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"freelance-tracker/internal/middleware"
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/services"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 1 << 20

type OrdersHandler struct {
	tracker        *services.Tracker
	maxUploadBytes int64
}

func NewOrdersHandler(tracker *services.Tracker, maxUploadBytes int64) *OrdersHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = services.DefaultMaxUploadBytes
	}
	return &OrdersHandler{tracker: tracker, maxUploadBytes: maxUploadBytes}
}

// ownedOrder loads :order_id if its project belongs to the authenticated owner.
func ownedOrder(c *gin.Context, t *services.Tracker) (*models.Order, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized", Message: "owner id not found"})
		return nil, false
	}
	orderID, ok := uuidParam(c, "order_id", "order not found")
	if !ok {
		return nil, false
	}
	o, err := t.OrderOwnedBy(c.Request.Context(), ownerID, orderID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return o, true
}

// CreateOrder godoc
// @Summary     Add an order to a project
// @Description New orders start PENDING without a file.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Param       request body models.CreateOrderRequest true "Order details"
// @Success     201 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/orders [post]
func (h *OrdersHandler) CreateOrder(c *gin.Context) {
	p, ok := ownedProject(c, h.tracker)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	o, err := h.tracker.AddOrder(c.Request.Context(), p.ID, req.Title, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderResponse(h.tracker, o))
}

// ListOrders godoc
// @Summary     List a project's orders
// @Description Lightweight polling endpoint for dashboards without a live stream.
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     200 {object} models.OrderListResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/orders [get]
func (h *OrdersHandler) ListOrders(c *gin.Context) {
	p, ok := ownedProject(c, h.tracker)
	if !ok {
		return
	}
	orders, err := h.tracker.ListOrders(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OrderListResponse{Orders: orderResponses(h.tracker, orders)})
}

// UpdateOrder godoc
// @Summary     Edit an order
// @Description Changes only the fields present in the body.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Param       request body models.UpdateOrderRequest true "Order details"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id} [patch]
func (h *OrdersHandler) UpdateOrder(c *gin.Context) {
	o, ok := ownedOrder(c, h.tracker)
	if !ok {
		return
	}

	var req models.UpdateOrderRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	title, notes := o.Title, o.Notes.String
	overlay(&title, req.Title)
	overlay(&notes, req.Notes)

	updated, err := h.tracker.UpdateOrder(c.Request.Context(), o.ID, title, notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(h.tracker, updated))
}

// SetStatus godoc
// @Summary     Set an order's status
// @Description Any of PENDING, IN_PROGRESS, COMPLETED, APPROVED from any status.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Param       request body models.SetStatusRequest true "New status"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id}/status [put]
func (h *OrdersHandler) SetStatus(c *gin.Context) {
	o, ok := ownedOrder(c, h.tracker)
	if !ok {
		return
	}

	var req models.SetStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	updated, err := h.tracker.SetOrderStatus(c.Request.Context(), o.ID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(h.tracker, updated))
}

// Upload godoc
// @Summary     Upload the order's file
// @Description Stores the file and replaces any previous one.
// @Tags        orders
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Param       file formData file true "Deliverable"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders/{order_id}/upload [post]
func (h *OrdersHandler) Upload(c *gin.Context) {
	o, ok := ownedOrder(c, h.tracker)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(c, "file is too large")
			return
		}
		badRequest(c, "no file provided")
		return
	}

	f, err := header.Open()
	if err != nil {
		badRequest(c, "could not read uploaded file")
		return
	}
	defer f.Close()

	updated, err := h.tracker.UploadFile(c.Request.Context(), o.ID, &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(h.tracker, updated))
}

// DeleteOrder godoc
// @Summary     Delete an order
// @Description Removes the order and its file.
// @Tags        orders
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Success     204
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id} [delete]
func (h *OrdersHandler) DeleteOrder(c *gin.Context) {
	o, ok := ownedOrder(c, h.tracker)
	if !ok {
		return
	}
	if err := h.tracker.DeleteOrder(c.Request.Context(), o.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
