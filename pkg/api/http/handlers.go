package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/pocketbus/internal/application/publisher"
	"github.com/aescanero/pocketbus/pkg/bus"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// StatsResponse represents the bus statistics response
type StatsResponse struct {
	Bus   bus.Stats               `json:"bus"`
	Audit publisher.AuditSnapshot `json:"audit"`
}

// StickyResponse lists the stored sticky events
type StickyResponse struct {
	Kinds   []string `json:"kinds"`
	Classes []string `json:"classes"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"bus": "ok"}
	status, code := "healthy", http.StatusOK

	if s.bus.Closed() {
		checks["bus"] = "closed"
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	if heartbeat, ok := s.publisher.LastHeartbeat(); ok {
		checks["heartbeat"] = gin.H{
			"sequence":  heartbeat.Sequence,
			"timestamp": heartbeat.Timestamp,
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// handleStats handles bus statistics requests
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Bus:   s.bus.Stats(),
		Audit: s.publisher.Audit(),
	})
}

// handleSubmitEvent handles event submission
func (s *Server) handleSubmitEvent(c *gin.Context) {
	var req publisher.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	receipt, err := s.publisher.Submit(c.Request.Context(), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, receipt)
	case errors.Is(err, publisher.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "UNKNOWN_KIND",
				Message: err.Error(),
				Details: gin.H{"kinds": publisher.Kinds()},
			},
		})
	case errors.Is(err, publisher.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_EVENT",
				Message: err.Error(),
			},
		})
	case errors.Is(err, bus.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "BUS_CLOSED",
				Message: err.Error(),
			},
		})
	default:
		s.logger.Error("failed to submit event", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SUBMISSION_FAILED",
				Message: err.Error(),
			},
		})
	}
}

// handleListSticky handles listing sticky events
func (s *Server) handleListSticky(c *gin.Context) {
	resp := StickyResponse{
		Kinds:   s.publisher.StickyKinds(),
		Classes: s.bus.StickyClasses(),
	}
	if resp.Kinds == nil {
		resp.Kinds = []string{}
	}

	c.JSON(http.StatusOK, resp)
}

// handleRemoveSticky handles sticky event removal
func (s *Server) handleRemoveSticky(c *gin.Context) {
	kind := c.Param("kind")

	removed, err := s.publisher.RemoveSticky(kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "UNKNOWN_KIND",
				Message: err.Error(),
				Details: gin.H{"kinds": publisher.Kinds()},
			},
		})
		return
	}

	if !removed {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "No sticky event stored for " + kind,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"removed": true,
	})
}

// handleSweep handles on-demand sweeps of dead subscriptions
func (s *Server) handleSweep(c *gin.Context) {
	removed := s.bus.Sweep()

	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
		"stats":   s.bus.Stats(),
	})
}
