package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/internal/service/project"
	"projecthub/pkg/circuitbreaker"
	"projecthub/pkg/logger"
)

const internalErrorMessage = "An unexpected internal error occurred"

// ProjectService is the engine behind the /projects endpoints.
type ProjectService interface {
	Create(ctx context.Context, in model.ProjectInput, credential string) (*model.Project, error)
	ReadAll(ctx context.Context) ([]*model.Project, error)
	ReadByID(ctx context.Context, id int64) (*model.Project, error)
	Update(ctx context.Context, id int64, in model.ProjectInput, credential string) (*model.Project, error)
	Delete(ctx context.Context, id int64) error
	AddEmployee(ctx context.Context, projectID, employeeID int64, credential string) (*model.Project, error)
	RemoveEmployee(ctx context.Context, projectID, employeeID int64) error
	EmployeesOf(ctx context.Context, projectID int64) (*model.ProjectEmployees, error)
	ProjectsOf(ctx context.Context, employeeID int64) ([]*model.Project, error)
}

type ProjectHandler struct {
	svc    ProjectService
	logger *zap.Logger
}

func NewProjectHandler(svc ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: logger}
}

// Register mounts the project routes on g.
func (h *ProjectHandler) Register(g *gin.RouterGroup) {
	g.POST("", h.CreateProject)
	g.GET("", h.ListProjects)
	g.GET("/:id", h.GetProject)
	g.PUT("/:id", h.UpdateProject)
	g.DELETE("/:id", h.DeleteProject)
	g.POST("/:id/employees", h.AddEmployee)
	g.GET("/:id/employees", h.GetProjectEmployees)
	g.DELETE("/:id/employees/:employeeId", h.RemoveEmployee)
	g.GET("/employees/:employeeId/projects", h.GetEmployeeProjects)
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	credential, ok := h.requireCredential(c)
	if !ok {
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Malformed request body: "+err.Error())
		return
	}

	p, err := h.svc.Create(c.Request.Context(), req.toInput(), credential)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProjectResponse(p))
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.svc.ReadAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponses(projects))
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.ReadByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(p))
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	credential, ok := h.requireCredential(c)
	if !ok {
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Malformed request body: "+err.Error())
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id, req.toInput(), credential)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(p))
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) AddEmployee(c *gin.Context) {
	projectID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	credential, ok := h.requireCredential(c)
	if !ok {
		return
	}

	var req AddEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Malformed request body: "+err.Error())
		return
	}
	if req.EmployeeID == nil {
		h.badRequest(c, "Employee ID is mandatory.")
		return
	}

	p, err := h.svc.AddEmployee(c.Request.Context(), projectID, *req.EmployeeID, credential)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(p))
}

func (h *ProjectHandler) RemoveEmployee(c *gin.Context) {
	projectID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	employeeID, ok := h.pathID(c, "employeeId")
	if !ok {
		return
	}

	if err := h.svc.RemoveEmployee(c.Request.Context(), projectID, employeeID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) GetProjectEmployees(c *gin.Context) {
	projectID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	team, err := h.svc.EmployeesOf(c.Request.Context(), projectID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ProjectEmployeesResponse{
		ProjectID:   team.ProjectID,
		ProjectName: team.ProjectName,
		EmployeeIDs: team.EmployeeIDs,
	})
}

func (h *ProjectHandler) GetEmployeeProjects(c *gin.Context) {
	employeeID, ok := h.pathID(c, "employeeId")
	if !ok {
		return
	}

	projects, err := h.svc.ProjectsOf(c.Request.Context(), employeeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponses(projects))
}

// requireCredential returns the raw Authorization header, which is forwarded
// to the employee directory unchanged.
func (h *ProjectHandler) requireCredential(c *gin.Context) (string, bool) {
	credential := c.GetHeader("Authorization")
	if credential == "" {
		h.abort(c, http.StatusUnauthorized, "Authorization header is required")
		return "", false
	}
	return credential, true
}

func (h *ProjectHandler) pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.Warn("Invalid path parameter",
			zap.String("param", name),
			zap.String("value", raw),
		)
		h.badRequest(c, "Invalid "+name+": "+raw)
		return 0, false
	}
	return id, true
}

func (h *ProjectHandler) badRequest(c *gin.Context, message string) {
	h.abort(c, http.StatusBadRequest, message)
}

// writeError maps engine error kinds to HTTP statuses.
func (h *ProjectHandler) writeError(c *gin.Context, err error) {
	log := logger.WithTrace(c.Request.Context(), h.logger)

	var verr *project.ValidationError
	switch {
	case errors.As(err, &verr):
		h.abort(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, project.ErrNotFound), errors.Is(err, project.ErrEmployeeNotFound):
		h.abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, project.ErrSchedulingConflict):
		h.abort(c, http.StatusConflict, err.Error())
	case errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen):
		log.Warn("Employee directory unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		h.abort(c, http.StatusServiceUnavailable, "Employee directory is temporarily unavailable")
	default:
		log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		h.abort(c, http.StatusInternalServerError, internalErrorMessage)
	}
}

func (h *ProjectHandler) abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Message:   message,
		Details:   "uri=" + c.Request.URL.Path,
	})
}
