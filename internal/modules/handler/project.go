package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/keepalive-app/keepalive/internal/config"
	"github.com/keepalive-app/keepalive/internal/modules/model"
	"github.com/keepalive-app/keepalive/internal/modules/serializer"
	"github.com/keepalive-app/keepalive/internal/modules/service"
	"github.com/keepalive-app/keepalive/internal/pkg/liveness"
)

type ProjectHandler struct {
	svc service.ProjectService
	cfg *config.Config
}

func NewProjectHandler(s service.ProjectService, cfg *config.Config) *ProjectHandler {
	return &ProjectHandler{
		svc: s,
		cfg: cfg,
	}
}

type CreateProjectReq struct {
	Name    string                 `json:"name" binding:"required"`
	Configs map[string]interface{} `json:"configs"`
}

// ProjectOut is a project plus its render-time liveness projection.
type ProjectOut struct {
	model.Project
	Liveness liveness.View `json:"liveness"`
}

func (h *ProjectHandler) project(p model.Project, now time.Time) ProjectOut {
	return ProjectOut{
		Project:  p,
		Liveness: liveness.Observe(p.Status, p.LastPingAt, p.CreatedAt, now, h.cfg.Ping.Policy()),
	}
}

// CreateProject godoc
//
//	@Summary		Create project
//	@Description	Create a monitored project. The response is the only time the full credential pair is returned.
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateProjectReq	true	"CreateProject payload"
//	@Security		RootAuth
//	@Success		201	{object}	serializer.Response{data=handler.ProjectOut}
//	@Router			/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	req := CreateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	ownerID := c.MustGet("owner_id").(uuid.UUID)

	project := model.Project{
		OwnerID: ownerID,
		Name:    req.Name,
		Status:  liveness.StatusPending,
		Configs: datatypes.JSONMap(req.Configs),
	}
	if err := h.svc.Create(c.Request.Context(), &project); err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: h.project(project, time.Now().UTC())})
}

// GetProjects godoc
//
//	@Summary		List projects
//	@Description	List the owner's projects with their liveness projection. Secrets are redacted.
//	@Tags			project
//	@Produce		json
//	@Security		RootAuth
//	@Success		200	{object}	serializer.Response{data=[]handler.ProjectOut}
//	@Router			/projects [get]
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	ownerID := c.MustGet("owner_id").(uuid.UUID)

	items, err := h.svc.List(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	now := time.Now().UTC()
	out := make([]ProjectOut, 0, len(items))
	for _, p := range items {
		out = append(out, h.project(p.Redacted(), now))
	}

	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// GetProject godoc
//
//	@Summary		Get project
//	@Description	Get one project by public id, including its credentials (owner view).
//	@Tags			project
//	@Produce		json
//	@Param			public_id	path	string	true	"Project public id"
//	@Security		RootAuth
//	@Success		200	{object}	serializer.Response{data=handler.ProjectOut}
//	@Router			/projects/{public_id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	ownerID := c.MustGet("owner_id").(uuid.UUID)

	p, err := h.svc.GetByPublicID(c.Request.Context(), ownerID, c.Param("public_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("project not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: h.project(*p, time.Now().UTC())})
}

// DeleteProject godoc
//
//	@Summary		Delete project
//	@Description	Owner-initiated terminal deletion.
//	@Tags			project
//	@Produce		json
//	@Param			public_id	path	string	true	"Project public id"
//	@Security		RootAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/projects/{public_id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	ownerID := c.MustGet("owner_id").(uuid.UUID)

	if err := h.svc.DeleteByPublicID(c.Request.Context(), ownerID, c.Param("public_id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("project not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Msg: "deleted"})
}
