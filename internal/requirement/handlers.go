package requirement

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes requirement and proposal endpoints over echo.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type requirementRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	BudgetMin   int64    `json:"budget_min"`
	BudgetMax   int64    `json:"budget_max"`
	Skills      []string `json:"skills"`
}

// CreateRequirement - client posts a custom-work request
func (h *Handler) CreateRequirement(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req requirementRequest
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if req.BudgetMin < 0 || req.BudgetMax < req.BudgetMin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid budget range"})
	}

	r := &Requirement{
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
		Skills:      req.Skills,
	}
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if err := h.store.CreateRequirement(c.Request().Context(), r); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create requirement"})
	}
	return c.JSON(http.StatusCreated, r)
}

// ListOpenRequirements - public discovery for freelancers
func (h *Handler) ListOpenRequirements(c echo.Context) error {
	reqs, err := h.store.ListOpenRequirements(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch requirements"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requirements": reqs})
}

// MyRequirements - client's own requirements
func (h *Handler) MyRequirements(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reqs, err := h.store.ListClientRequirements(c.Request().Context(), clientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch requirements"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requirements": reqs})
}

// CancelRequirement - client withdraws an open requirement
func (h *Handler) CancelRequirement(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	r, err := h.store.GetRequirement(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "requirement not found"})
	}
	if r.ClientID != clientID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your requirement"})
	}
	if r.Status != StatusOpen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only open requirements can be cancelled"})
	}
	if err := h.store.SetRequirementStatus(ctx, r.ID, StatusCancelled); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel requirement"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "requirement cancelled"})
}

type proposalRequest struct {
	ProposedPrice int64  `json:"proposed_price"`
	Message       string `json:"message"`
}

// SubmitProposal - freelancer bids on an open requirement
func (h *Handler) SubmitProposal(c echo.Context) error {
	freelancerID, ok := c.Get("user_id").(string)
	if !ok || freelancerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req proposalRequest
	if err := c.Bind(&req); err != nil || req.ProposedPrice <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "positive proposed_price required"})
	}

	ctx := c.Request().Context()
	r, err := h.store.GetRequirement(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "requirement not found"})
	}
	if r.Status != StatusOpen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "requirement is not accepting proposals"})
	}
	if r.ClientID == freelancerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot bid on your own requirement"})
	}

	p := &Proposal{
		RequirementID: r.ID,
		FreelancerID:  freelancerID,
		ProposedPrice: req.ProposedPrice,
		Message:       req.Message,
	}
	if err := h.store.CreateProposal(ctx, p); err != nil {
		if errors.Is(err, ErrAlreadyApplied) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already applied"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to submit proposal"})
	}
	return c.JSON(http.StatusCreated, p)
}

// ListProposals - client reviews proposals on an owned requirement
func (h *Handler) ListProposals(c echo.Context) error {
	clientID, ok := c.Get("user_id").(string)
	if !ok || clientID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	r, err := h.store.GetRequirement(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "requirement not found"})
	}
	if r.ClientID != clientID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your requirement"})
	}

	proposals, err := h.store.ListRequirementProposals(ctx, r.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch proposals"})
	}
	return c.JSON(http.StatusOK, echo.Map{"proposals": proposals})
}

// MyProposals - freelancer's submitted proposals
func (h *Handler) MyProposals(c echo.Context) error {
	freelancerID, ok := c.Get("user_id").(string)
	if !ok || freelancerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	proposals, err := h.store.ListFreelancerProposals(c.Request().Context(), freelancerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch proposals"})
	}
	return c.JSON(http.StatusOK, echo.Map{"proposals": proposals})
}
