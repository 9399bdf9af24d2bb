// Package httpapi exposes the built language model over HTTP, grounded on
// the teacher's gin controller/router split (internal/controller,
// internal/handler): one controller type per resource, wired into a
// gin.Engine by a separate router constructor.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arpalm/golm/internal/service/lm/model"
	"github.com/arpalm/golm/internal/service/lm/query"
)

// ModelController answers queries against one built language model.
type ModelController struct {
	model  *model.Model
	logger *zap.Logger
}

// NewModelController wires a controller to an already-built model.
func NewModelController(m *model.Model, logger *zap.Logger) *ModelController {
	return &ModelController{model: m, logger: logger}
}

// QueryRequest is the request body for POST /api/v1/query.
type QueryRequest struct {
	Tokens []string `json:"tokens" binding:"required"`
	Mode   string   `json:"mode"` // "single" (default) or "cumulative"
}

// QueryResponse mirrors query.Result over the wire.
type QueryResponse struct {
	PerPosition []float32 `json:"per_position,omitempty"`
	Sum         float32   `json:"sum"`
}

// Query handles POST /api/v1/query.
func (mc *ModelController) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := query.Single
	if req.Mode == "cumulative" {
		mode = query.Cumulative
	}

	mc.logger.Info("httpapi: query",
		zap.Strings("tokens", req.Tokens),
		zap.String("mode", req.Mode))

	res, err := mc.model.Query(req.Tokens, mode)
	if err != nil {
		mc.logger.Warn("httpapi: query rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, QueryResponse{PerPosition: res.PerPosition, Sum: res.Sum})
}

// StatsResponse reports the build-time statistics of the served model.
type StatsResponse struct {
	Variant         string `json:"variant"`
	VocabularySize  int    `json:"vocabulary_size"`
	AcceptedByLevel []int  `json:"accepted_by_level"`
	SkippedByLevel  []int  `json:"skipped_by_level"`
}

// Stats handles GET /api/v1/stats.
func (mc *ModelController) Stats(c *gin.Context) {
	stats := mc.model.Stats()
	c.JSON(http.StatusOK, StatsResponse{
		Variant:         mc.model.Variant().String(),
		VocabularySize:  mc.model.VocabularySize(),
		AcceptedByLevel: stats.Accepted[:],
		SkippedByLevel:  stats.Skipped[:],
	})
}
