package payment

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gigconnect/server/internal/catalog"
	"github.com/gigconnect/server/internal/requirement"
)

// Reconciler converts a paid record into domain state. It runs in its own
// failure domain: a reconciliation error never unwinds the paid status.
type Reconciler interface {
	HandleSuccessfulPayment(ctx context.Context, paymentRecordID string) error
}

// Handler exposes payment creation and verification over echo.
type Handler struct {
	store        *Store
	gateway      Gateway
	gigs         *catalog.Store
	requirements *requirement.Store
	reconciler   Reconciler
}

func NewHandler(store *Store, gateway Gateway, gigs *catalog.Store, requirements *requirement.Store, reconciler Reconciler) *Handler {
	return &Handler{store: store, gateway: gateway, gigs: gigs, requirements: requirements, reconciler: reconciler}
}

func receiptFor(kind ReferenceKind, referenceID string) string {
	ref := referenceID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return string(kind) + "_" + ref
}

// CreateGigPaymentOrder - client starts checkout for a gig purchase
func (h *Handler) CreateGigPaymentOrder(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	gig, err := h.gigs.Get(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "gig not found"})
	}
	if gig.Status != catalog.GigActive {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "gig is not active"})
	}

	externalOrderID, err := h.gateway.CreateRemoteCharge(ctx, gig.Price, "INR", receiptFor(RefGig, gig.ID))
	if err != nil {
		log.Printf("payment: gateway charge for gig %s failed: %v", gig.ID, err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to create payment order"})
	}

	rec := &Record{
		ClientID:        clientID,
		ReferenceKind:   RefGig,
		ReferenceID:     gig.ID,
		ExternalOrderID: externalOrderID,
		Amount:          gig.Price,
		Currency:        "INR",
	}
	if err := h.store.Create(ctx, rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"payment_id": rec.ID,
		"order_id":   externalOrderID,
		"amount":     rec.Amount,
		"currency":   rec.Currency,
	})
}

// CreateProposalPaymentOrder - client starts checkout to accept a proposal
func (h *Handler) CreateProposalPaymentOrder(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	p, err := h.requirements.GetProposal(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "proposal not found"})
	}
	r, err := h.requirements.GetRequirement(ctx, p.RequirementID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "requirement not found"})
	}
	if r.ClientID != clientID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized to pay for this proposal"})
	}
	if p.Status != requirement.ProposalPending {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "proposal is not pending"})
	}

	// A failed attempt may be retried with a fresh record; an open one may not.
	open, err := h.store.HasOpenForReference(ctx, RefProposal, p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check existing payments"})
	}
	if open {
		return c.JSON(http.StatusConflict, echo.Map{"error": "payment already exists for this proposal"})
	}

	externalOrderID, err := h.gateway.CreateRemoteCharge(ctx, p.ProposedPrice, "INR", receiptFor(RefProposal, p.ID))
	if err != nil {
		log.Printf("payment: gateway charge for proposal %s failed: %v", p.ID, err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to create payment order"})
	}

	rec := &Record{
		ClientID:        clientID,
		ReferenceKind:   RefProposal,
		ReferenceID:     p.ID,
		ExternalOrderID: externalOrderID,
		Amount:          p.ProposedPrice,
		Currency:        "INR",
	}
	if err := h.store.Create(ctx, rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"payment_id": rec.ID,
		"order_id":   externalOrderID,
		"amount":     rec.Amount,
		"currency":   rec.Currency,
	})
}

type verifyRequest struct {
	ExternalOrderID   string `json:"external_order_id"`
	ExternalPaymentID string `json:"external_payment_id"`
	Signature         string `json:"signature"`
}

// VerifyPayment - checkout callback: verify the gateway signature, persist the
// paid status, then reconcile. The paid status write and the reconciliation
// outcome are separate failure domains: once the record is paid it stays paid,
// and reconciliation can be re-invoked later if it fails here.
func (h *Handler) VerifyPayment(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil || req.ExternalOrderID == "" || req.ExternalPaymentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := c.Request().Context()
	if _, err := h.store.GetByExternalRef(ctx, req.ExternalOrderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch payment"})
	}

	if !h.gateway.VerifySignature(req.ExternalOrderID, req.ExternalPaymentID, req.Signature) {
		if err := h.store.MarkFailed(ctx, req.ExternalOrderID); err != nil {
			log.Printf("payment: failed to mark %s failed: %v", req.ExternalOrderID, err)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid payment signature"})
	}

	rec, err := h.store.MarkPaid(ctx, req.ExternalOrderID, req.ExternalPaymentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update payment"})
	}

	if err := h.reconciler.HandleSuccessfulPayment(ctx, rec.ID); err != nil {
		// Paid status is already durable; reconciliation is re-invocable.
		log.Printf("payment: reconciliation for %s failed: %v", rec.ID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"payment_id": rec.ID,
		"status":     rec.Status,
	})
}
