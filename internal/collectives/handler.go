package collectives

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/middleware"
	"github.com/fundhub/backend/internal/tiers"
	"github.com/fundhub/backend/pkg/apperr"
	"github.com/fundhub/backend/pkg/response"
)

// EditTiersRequest is the body for PUT /collectives/:id/tiers.
type EditTiersRequest struct {
	Tiers []tiers.Input `json:"tiers"`
}

// Handler serves the collective endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a collectives handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error(op+" failed", zap.Error(err))
	}
	response.Error(c, err)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid collective id")
		return 0, false
	}
	return id, true
}

// Create handles POST /collectives.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		h.fail(c, "create collective", err)
		return
	}
	response.Created(c, v)
}

// Edit handles PUT /collectives/:id.
func (h *Handler) Edit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	in.ID = id
	v, err := h.svc.Edit(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		h.fail(c, "edit collective", err)
		return
	}
	response.OK(c, v)
}

// EditTiers handles PUT /collectives/:id/tiers.
func (h *Handler) EditTiers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req EditTiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ts, err := h.svc.EditTiers(c.Request.Context(), middleware.ActorFrom(c), id, req.Tiers)
	if err != nil {
		h.fail(c, "edit tiers", err)
		return
	}
	response.OK(c, ts)
}

// Delete handles DELETE /collectives/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	deleted, err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		h.fail(c, "delete collective", err)
		return
	}
	response.OK(c, gin.H{"id": deleted.ID, "name": deleted.Name})
}

// Get handles GET /collectives/:id, where :id is an id or a slug.
// tierSlug and tierId narrow the returned tiers.
func (h *Handler) Get(c *gin.Context) {
	f := TierFilter{Slug: c.Query("tierSlug")}
	if raw := c.Query("tierId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.BadRequest(c, "invalid tier id")
			return
		}
		f.ID = id
	}

	var (
		v   *View
		err error
	)
	ref := c.Param("id")
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil && id > 0 {
		v, err = h.svc.Get(c.Request.Context(), id, f)
	} else {
		v, err = h.svc.GetBySlug(c.Request.Context(), ref, f)
	}
	if err != nil {
		h.fail(c, "get collective", err)
		return
	}
	response.OK(c, v)
}
