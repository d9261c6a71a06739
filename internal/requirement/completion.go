package requirement

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// The completion sub-flow runs on the proposal itself: the freelancer submits
// completion notes, the client approves (with feedback and an optional rating)
// or sends the work back.

type completionRequest struct {
	CompletionNotes string `json:"completion_notes"`
}

// RequestCompletion - freelancer submits finished work for client approval
func (h *Handler) RequestCompletion(c echo.Context) error {
	freelancerID, ok := c.Get("user_id").(string)
	if !ok || freelancerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req completionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := c.Request().Context()
	p, err := h.store.GetProposal(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "proposal not found"})
	}
	if p.FreelancerID != freelancerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the assigned freelancer"})
	}
	if p.Status != ProposalInProgress {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "proposal must be in progress to request completion"})
	}

	now := time.Now()
	p.Status = ProposalAwaitingCompletion
	p.CompletionNotes = &req.CompletionNotes
	p.SubmittedAt = &now
	if err := h.store.UpdateProposal(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update proposal"})
	}
	return c.JSON(http.StatusOK, p)
}

type completionApprovalRequest struct {
	Feedback string `json:"feedback"`
	Rating   *int   `json:"rating"`
}

// ApproveCompletion - client approves submitted work and closes out the requirement
func (h *Handler) ApproveCompletion(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req completionApprovalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}

	ctx := c.Request().Context()
	p, err := h.store.GetProposal(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "proposal not found"})
	}
	r, err := h.store.GetRequirement(ctx, p.RequirementID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "requirement not found"})
	}
	if r.ClientID != clientID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the project owner"})
	}
	if p.Status != ProposalAwaitingCompletion {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "proposal must be awaiting completion to approve"})
	}

	now := time.Now()
	p.Status = ProposalCompleted
	p.ClientFeedback = &req.Feedback
	p.Rating = req.Rating
	p.CompletedAt = &now
	if err := h.store.UpdateProposal(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update proposal"})
	}
	if err := h.store.SetRequirementStatus(ctx, r.ID, StatusCompleted); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update requirement"})
	}
	return c.JSON(http.StatusOK, p)
}

type completionRejectionRequest struct {
	Feedback         string `json:"feedback"`
	RequestedChanges string `json:"requested_changes"`
}

// RejectCompletion - client sends submitted work back for more changes
func (h *Handler) RejectCompletion(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req completionRejectionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := c.Request().Context()
	p, err := h.store.GetProposal(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "proposal not found"})
	}
	r, err := h.store.GetRequirement(ctx, p.RequirementID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "requirement not found"})
	}
	if r.ClientID != clientID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the project owner"})
	}
	if p.Status != ProposalAwaitingCompletion {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "proposal must be awaiting completion to reject"})
	}

	feedback := req.Feedback
	if req.RequestedChanges != "" {
		feedback += "\n\nRequested Changes: " + req.RequestedChanges
	}
	p.Status = ProposalInProgress
	p.ClientFeedback = &feedback
	p.SubmittedAt = nil
	if err := h.store.UpdateProposal(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update proposal"})
	}
	return c.JSON(http.StatusOK, p)
}
