package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/john-rice/gitbutler/cmd/branches/service"
	"github.com/john-rice/gitbutler/common/logger"
	"github.com/john-rice/gitbutler/common/models"
	"github.com/john-rice/gitbutler/common/repository"
)

// BranchHandler handles branch-related requests
type BranchHandler struct {
	service *service.BranchService
	log     *logger.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(svc *service.BranchService, log *logger.Logger) *BranchHandler {
	return &BranchHandler{
		service: svc,
		log:     log,
	}
}

// CreateBranch creates a new virtual branch
// POST /api/v1/branches
func (h *BranchHandler) CreateBranch(c echo.Context) error {
	var req models.BranchCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	branch, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusCreated, branch)
}

// GetBranch retrieves a branch by id
// GET /api/v1/branches/:id
func (h *BranchHandler) GetBranch(c echo.Context) error {
	id, err := models.ParseBranchID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	branch, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, branch)
}

// ListBranches lists branches, optionally narrowed by a CEL filter
// GET /api/v1/branches?filter=branch.applied
func (h *BranchHandler) ListBranches(c echo.Context) error {
	branches, err := h.service.List(c.Request().Context(), c.QueryParam("filter"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"branches": branches,
		"count":    len(branches),
	})
}

// UpdateBranch applies a sparse update request
// PUT /api/v1/branches/:id
func (h *BranchHandler) UpdateBranch(c echo.Context) error {
	id, err := models.ParseBranchID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	var req models.BranchUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	req.ID = id

	branch, err := h.service.Update(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, branch)
}

// PatchBranch applies an RFC 7386 JSON merge patch
// PATCH /api/v1/branches/:id
func (h *BranchHandler) PatchBranch(c echo.Context) error {
	id, err := models.ParseBranchID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	patch, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	branch, err := h.service.MergePatch(c.Request().Context(), id, patch)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, branch)
}

// ApplyBranch marks a branch as applied
// POST /api/v1/branches/:id/apply
func (h *BranchHandler) ApplyBranch(c echo.Context) error {
	return h.setApplied(c, true)
}

// UnapplyBranch marks a branch as not applied
// POST /api/v1/branches/:id/unapply
func (h *BranchHandler) UnapplyBranch(c echo.Context) error {
	return h.setApplied(c, false)
}

func (h *BranchHandler) setApplied(c echo.Context, applied bool) error {
	id, err := models.ParseBranchID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	branch, err := h.service.SetApplied(c.Request().Context(), id, applied)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, branch)
}

// DeleteBranch deletes a branch record
// DELETE /api/v1/branches/:id
func (h *BranchHandler) DeleteBranch(c echo.Context) error {
	id, err := models.ParseBranchID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// fail maps service errors onto HTTP statuses
func (h *BranchHandler) fail(c echo.Context, err error) error {
	var fieldErr *repository.FieldError

	switch {
	case errors.Is(err, repository.ErrBranchNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err))
	case errors.Is(err, service.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, errorBody(err))
	case errors.As(err, &fieldErr):
		// A stored field that cannot be read or an unparseable input field
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": err.Error(),
			"field": fieldErr.Key,
		})
	default:
		h.log.Error("branch request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
}

func errorBody(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}
