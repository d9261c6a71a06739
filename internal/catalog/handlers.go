package catalog

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes gig endpoints over echo.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type gigRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Skills      []string `json:"skills"`
}

// CreateGig - freelancer lists a new gig
func (h *Handler) CreateGig(c echo.Context) error {
	freelancerID, ok := c.Get("user_id").(string)
	if !ok || freelancerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req gigRequest
	if err := c.Bind(&req); err != nil || req.Title == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and positive price required"})
	}

	g := &Gig{
		FreelancerID: freelancerID,
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Skills:       req.Skills,
	}
	if g.Skills == nil {
		g.Skills = []string{}
	}
	if err := h.store.Create(c.Request().Context(), g); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create gig"})
	}
	return c.JSON(http.StatusCreated, g)
}

// GetGig - public gig detail (deleted gigs are hidden)
func (h *Handler) GetGig(c echo.Context) error {
	g, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil || g.Status == GigDeleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "gig not found"})
	}
	return c.JSON(http.StatusOK, g)
}

// ListGigs - public discovery of active gigs
func (h *Handler) ListGigs(c echo.Context) error {
	gigs, err := h.store.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch gigs"})
	}
	return c.JSON(http.StatusOK, echo.Map{"gigs": gigs})
}

// MyGigs - freelancer's own gigs
func (h *Handler) MyGigs(c echo.Context) error {
	freelancerID, ok := c.Get("user_id").(string)
	if !ok || freelancerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	gigs, err := h.store.ListByFreelancer(c.Request().Context(), freelancerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch gigs"})
	}
	return c.JSON(http.StatusOK, echo.Map{"gigs": gigs})
}

// UpdateGig - freelancer edits an owned gig
func (h *Handler) UpdateGig(c echo.Context) error {
	freelancerID, ok := c.Get("user_id").(string)
	if !ok || freelancerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	g, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "gig not found"})
	}
	if g.FreelancerID != freelancerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your gig"})
	}

	var req gigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title != "" {
		g.Title = req.Title
	}
	if req.Description != "" {
		g.Description = req.Description
	}
	if req.Price > 0 {
		g.Price = req.Price
	}
	if req.Skills != nil {
		g.Skills = req.Skills
	}

	if err := h.store.Update(ctx, g); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "gig not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update gig"})
	}
	return c.JSON(http.StatusOK, g)
}

// SetGigStatus - freelancer activates/deactivates/deletes an owned gig
func (h *Handler) SetGigStatus(c echo.Context) error {
	freelancerID, ok := c.Get("user_id").(string)
	if !ok || freelancerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Status GigStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	switch req.Status {
	case GigActive, GigInactive, GigDeleted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	err := h.store.SetStatus(c.Request().Context(), c.Param("id"), freelancerID, req.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "gig not found or not yours"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "gig status updated"})
}
