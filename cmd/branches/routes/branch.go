package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/john-rice/gitbutler/cmd/branches/container"
	"github.com/john-rice/gitbutler/cmd/branches/handlers"
)

// RegisterBranchRoutes registers all branch routes
func RegisterBranchRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewBranchHandler(c.BranchService, c.Logger)

	branches := e.Group("/api/v1/branches")
	{
		branches.POST("", h.CreateBranch)            // POST   /api/v1/branches
		branches.GET("", h.ListBranches)             // GET    /api/v1/branches?filter=...
		branches.GET("/:id", h.GetBranch)            // GET    /api/v1/branches/{branch_id}
		branches.PUT("/:id", h.UpdateBranch)         // PUT    /api/v1/branches/{branch_id}
		branches.PATCH("/:id", h.PatchBranch)        // PATCH  /api/v1/branches/{branch_id}
		branches.POST("/:id/apply", h.ApplyBranch)   // POST   /api/v1/branches/{branch_id}/apply
		branches.POST("/:id/unapply", h.UnapplyBranch) // POST /api/v1/branches/{branch_id}/unapply
		branches.DELETE("/:id", h.DeleteBranch)      // DELETE /api/v1/branches/{branch_id}
	}
}
