package orders

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/middleware"
	"github.com/fundhub/backend/pkg/apperr"
	"github.com/fundhub/backend/pkg/response"
)

// Handler serves the order endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an orders handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /orders. Anonymous callers identify with user.email.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.CreateOrder(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.logger.Error("create order failed", zap.Error(err))
		}
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
