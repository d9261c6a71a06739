package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gigconnect/server/internal/alerts"
	"github.com/gigconnect/server/internal/db"
	"github.com/gigconnect/server/internal/messaging"
)

// Handler exposes the order workflow over HTTP. Every route requires an
// authenticated user; the JWT middleware puts user_id into the echo context.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func userID(c echo.Context) (string, bool) {
	id, ok := c.Get("user_id").(string)
	return id, ok && id != ""
}

// writeError maps workflow errors onto HTTP responses.
func writeError(c echo.Context, err error) error {
	var invalid *InvalidTransitionError
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized"})
	case errors.Is(err, ErrGigUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "gig is not available for purchase"})
	case errors.Is(err, ErrPaymentNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment not found"})
	case errors.Is(err, ErrPaymentNotCompleted):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment not completed"})
	case errors.Is(err, ErrAmountMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment amount does not match price"})
	case errors.Is(err, ErrAlreadyProcessed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "proposal already processed"})
	case errors.As(err, &invalid):
		return c.JSON(http.StatusConflict, echo.Map{"error": invalid.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// PurchaseGig - client creates an order from a verified gig payment
func (h *Handler) PurchaseGig(c echo.Context) error {
	clientID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		GigID       string `json:"gig_id"`
		PaymentRef  string `json:"payment_ref"`
		ClientNotes string `json:"client_notes"`
	}
	if err := c.Bind(&req); err != nil || req.GigID == "" || req.PaymentRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "gig_id and payment_ref are required"})
	}

	o, err := h.service.PurchaseGig(c.Request().Context(), req.GigID, clientID, req.PaymentRef, req.ClientNotes)
	if err != nil {
		return writeError(c, err)
	}

	h.notifyOrderConfirmed(o)
	return c.JSON(http.StatusCreated, o)
}

// AcceptProposal - client creates an order from a paid-for proposal
func (h *Handler) AcceptProposal(c echo.Context) error {
	clientID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		ProposalID  string `json:"proposal_id"`
		PaymentRef  string `json:"payment_ref"`
		ClientNotes string `json:"client_notes"`
	}
	if err := c.Bind(&req); err != nil || req.ProposalID == "" || req.PaymentRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "proposal_id and payment_ref are required"})
	}

	o, err := h.service.AcceptProposal(c.Request().Context(), req.ProposalID, clientID, req.PaymentRef, req.ClientNotes)
	if err != nil {
		return writeError(c, err)
	}

	h.notifyOrderConfirmed(o)
	return c.JSON(http.StatusCreated, o)
}

// UpdateStatus - generic transition endpoint; the service validates role and
// current status
func (h *Handler) UpdateStatus(c echo.Context) error {
	actorID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	var req struct {
		Status        string `json:"status"`
		DeliveryNotes string `json:"delivery_notes"`
		ClientNotes   string `json:"client_notes"`
		RevisionNotes string `json:"revision_notes"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is required"})
	}

	requested := Status(req.Status)
	switch requested {
	case StatusInProgress, StatusSubmittedForReview, StatusCompleted, StatusRevisionRequested, StatusCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	o, err := h.service.UpdateStatus(c.Request().Context(), orderID, actorID, requested, UpdatePayload{
		DeliveryNotes: req.DeliveryNotes,
		ClientNotes:   req.ClientNotes,
		RevisionNotes: req.RevisionNotes,
	})
	if err != nil {
		return writeError(c, err)
	}

	h.notifyTransition(o, requested)
	return c.JSON(http.StatusOK, o)
}

// StartWork - freelancer starts a confirmed order
func (h *Handler) StartWork(c echo.Context) error {
	actorID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	o, err := h.service.StartWork(c.Request().Context(), c.Param("id"), actorID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// DeliverWork - freelancer submits work for review
func (h *Handler) DeliverWork(c echo.Context) error {
	actorID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		DeliveryNotes string `json:"delivery_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	o, err := h.service.DeliverWork(c.Request().Context(), c.Param("id"), actorID, req.DeliveryNotes)
	if err != nil {
		return writeError(c, err)
	}
	h.notifyTransition(o, StatusSubmittedForReview)
	return c.JSON(http.StatusOK, o)
}

// ApproveWork - client accepts the submitted work
func (h *Handler) ApproveWork(c echo.Context) error {
	actorID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		ClientNotes string `json:"client_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	o, err := h.service.ApproveWork(c.Request().Context(), c.Param("id"), actorID, req.ClientNotes)
	if err != nil {
		return writeError(c, err)
	}
	h.notifyTransition(o, StatusCompleted)
	return c.JSON(http.StatusOK, o)
}

// RequestRevision - client sends the work back for changes
func (h *Handler) RequestRevision(c echo.Context) error {
	actorID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		RevisionNotes string `json:"revision_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	o, err := h.service.RequestRevision(c.Request().Context(), c.Param("id"), actorID, req.RevisionNotes)
	if err != nil {
		return writeError(c, err)
	}
	h.notifyTransition(o, StatusRevisionRequested)
	return c.JSON(http.StatusOK, o)
}

// GetOrder - fetch a single order the caller is a party to
func (h *Handler) GetOrder(c echo.Context) error {
	actorID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	o, err := h.service.Get(c.Request().Context(), c.Param("id"), actorID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// GetByPaymentRef - fetch the order created for a payment reference
func (h *Handler) GetByPaymentRef(c echo.Context) error {
	actorID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("ref")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing payment ref in URL"})
	}
	o, err := h.service.GetByPaymentRef(c.Request().Context(), ref, actorID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// ListOrders - all orders the caller participates in
func (h *Handler) ListOrders(c echo.Context) error {
	actorID, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.service.ListForUser(c.Request().Context(), actorID)
	if err != nil {
		return writeError(c, err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return c.JSON(http.StatusOK, orders)
}

// Notifications are best effort: a failed enqueue never fails the request.

func (h *Handler) notifyOrderConfirmed(o *Order) {
	email := lookupEmail(o.FreelancerID)
	if email != "" {
		_ = alerts.EnqueueOrderConfirmed(o.ID, o.ClientID, o.FreelancerID, email, o.Amount, o.Title)
	}
}

func (h *Handler) notifyTransition(o *Order, requested Status) {
	messaging.BroadcastOrderStatus(o.ID, echo.Map{"order_id": o.ID, "status": o.Status})
	switch requested {
	case StatusSubmittedForReview:
		if email := lookupEmail(o.ClientID); email != "" {
			_ = alerts.EnqueueOrderDelivered(o.ID, o.ClientID, o.FreelancerID, email, o.Amount, o.Title)
		}
	case StatusCompleted:
		if email := lookupEmail(o.FreelancerID); email != "" {
			_ = alerts.EnqueueOrderCompleted(o.ID, o.ClientID, o.FreelancerID, email, o.Amount, o.Title)
		}
	case StatusRevisionRequested:
		if email := lookupEmail(o.FreelancerID); email != "" {
			_ = alerts.EnqueueRevisionRequested(o.ID, o.ClientID, o.FreelancerID, email, o.Title)
		}
	case StatusCancelled:
		if email := lookupEmail(o.FreelancerID); email != "" {
			_ = alerts.EnqueueOrderCancelled(o.ID, o.ClientID, o.FreelancerID, email, o.Amount, o.Title)
		}
	}
}

func lookupEmail(id string) string {
	var email string
	_ = db.Conn.QueryRow(context.Background(), `SELECT email FROM users WHERE id = $1`, id).Scan(&email)
	return email
}
