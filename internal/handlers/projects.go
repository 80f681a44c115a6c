package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freelance-tracker/internal/middleware"
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/services"
)

type ProjectsHandler struct {
	tracker *services.Tracker
}

func NewProjectsHandler(tracker *services.Tracker) *ProjectsHandler {
	return &ProjectsHandler{tracker: tracker}
}

// ownedProject loads :project_id if the authenticated owner holds it.
func ownedProject(c *gin.Context, t *services.Tracker) (*models.Project, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized", Message: "owner id not found"})
		return nil, false
	}
	projectID, ok := uuidParam(c, "project_id", "project not found")
	if !ok {
		return nil, false
	}
	p, err := t.ProjectOwnedBy(c.Request.Context(), ownerID, projectID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return p, true
}

func projectInput(req models.CreateProjectRequest) services.ProjectInput {
	return services.ProjectInput{
		Title:       req.Title,
		Description: req.Description,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		Deadline:    req.Deadline,
	}
}

// mergeProjectUpdate overlays the fields present in req on the stored
// project.
func mergeProjectUpdate(p *models.Project, req models.UpdateProjectRequest) services.ProjectInput {
	in := services.ProjectInput{
		Title:       p.Title,
		Description: p.Description.String,
		ClientName:  p.ClientName.String,
		ClientEmail: p.ClientEmail.String,
	}
	if p.Deadline.Valid {
		in.Deadline = p.Deadline.Time.Format(deadlineLayout)
	}
	overlay(&in.Title, req.Title)
	overlay(&in.Description, req.Description)
	overlay(&in.ClientName, req.ClientName)
	overlay(&in.ClientEmail, req.ClientEmail)
	overlay(&in.Deadline, req.Deadline)
	return in
}

func overlay(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// CreateProject godoc
// @Summary     Create a project
// @Description Creates a project owned by the caller and issues its client access token.
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateProjectRequest true "Project details"
// @Success     201 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects [post]
func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized", Message: "owner id not found"})
		return
	}

	var req models.CreateProjectRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	p, err := h.tracker.CreateProject(c.Request.Context(), ownerID, projectInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectResponse(p, freelancerView))
}

// ListProjects godoc
// @Summary     List projects
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ProjectListResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized", Message: "owner id not found"})
		return
	}

	projects, err := h.tracker.ListProjects(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.ProjectResponse, len(projects))
	for i := range projects {
		out[i] = projectResponse(&projects[i], freelancerView)
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{Projects: out})
}

// GetProject godoc
// @Summary     Get a project with its orders
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     200 {object} models.ProjectDetailResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	p, ok := ownedProject(c, h.tracker)
	if !ok {
		return
	}
	full, err := h.tracker.GetProject(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectDetailResponse(h.tracker, full, freelancerView))
}

// UpdateProject godoc
// @Summary     Edit a project
// @Description Changes only the fields present in the body. An empty string clears an optional field.
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Param       request body models.UpdateProjectRequest true "Project details"
// @Success     200 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [patch]
func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	p, ok := ownedProject(c, h.tracker)
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	updated, err := h.tracker.UpdateProject(c.Request.Context(), p.ID, mergeProjectUpdate(p, req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectResponse(updated, freelancerView))
}

// DeleteProject godoc
// @Summary     Delete a project
// @Description Deletes the project, its orders and their files.
// @Tags        projects
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     204
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [delete]
func (h *ProjectsHandler) DeleteProject(c *gin.Context) {
	p, ok := ownedProject(c, h.tracker)
	if !ok {
		return
	}
	if err := h.tracker.DeleteProject(c.Request.Context(), p.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegenerateToken godoc
// @Summary     Regenerate the client access token
// @Description The previous token stops working immediately.
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     200 {object} models.TokenResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/token/regenerate [post]
func (h *ProjectsHandler) RegenerateToken(c *gin.Context) {
	p, ok := ownedProject(c, h.tracker)
	if !ok {
		return
	}
	updated, err := h.tracker.RegenerateToken(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TokenResponse{ProjectID: updated.ID.String(), AccessToken: updated.AccessToken.String})
}

// RevokeToken godoc
// @Summary     Revoke the client access token
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     200 {object} models.TokenResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/token/revoke [post]
func (h *ProjectsHandler) RevokeToken(c *gin.Context) {
	p, ok := ownedProject(c, h.tracker)
	if !ok {
		return
	}
	updated, err := h.tracker.RevokeToken(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TokenResponse{ProjectID: updated.ID.String()})
}
