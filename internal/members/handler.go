package members

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/middleware"
	"github.com/fundhub/backend/pkg/apperr"
	"github.com/fundhub/backend/pkg/response"
)

// Handler serves the membership endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a members handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) bind(c *gin.Context) (Input, bool) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return in, false
	}
	return in, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error(op+" failed", zap.Error(err))
	}
	response.Error(c, err)
}

// Create handles POST /members.
func (h *Handler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		h.fail(c, "create member", err)
		return
	}
	response.Created(c, v)
}

// Remove handles POST /members/remove.
func (h *Handler) Remove(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	m, err := h.svc.Remove(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		h.fail(c, "remove member", err)
		return
	}
	response.OK(c, gin.H{"id": m.ID})
}
