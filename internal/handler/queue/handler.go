package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/careops/queue-api/internal/model"
	"github.com/careops/queue-api/pkg/httputil"
)

// Service is the queue engine surface the handler depends on.
type Service interface {
	Snapshot(ctx context.Context) (*model.QueueSnapshot, error)
	UpdateStatus(ctx context.Context, req *model.UpdateQueueStatusRequest) error
	AdmitWalkIn(ctx context.Context, req *model.AdmitWalkInRequest) (string, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	queue := r.Group("/queue")
	{
		queue.GET("", h.GetQueue)
		queue.PUT("", h.UpdateStatus)
		queue.POST("", h.AdmitWalkIn)
	}
}

// bindErrorMessage flattens binding failures into something a desk client
// can show, instead of validator's struct-path dump.
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// GetQueue returns today's assembled queue, doctor availability and stats.
// The reception desk polls this on a fixed interval.
func (h *Handler) GetQueue(c *gin.Context) {
	snapshot, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, snapshot)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.UpdateQueueStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, bindErrorMessage(err))
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"message": "queue entry updated"})
}

func (h *Handler) AdmitWalkIn(c *gin.Context) {
	var req model.AdmitWalkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, bindErrorMessage(err))
		return
	}

	appointmentID, err := h.service.AdmitWalkIn(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, gin.H{
		"message":        "walk-in patient admitted",
		"appointment_id": appointmentID,
	})
}
