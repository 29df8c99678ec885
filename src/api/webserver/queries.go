package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/legal-agent/src/agents/core"
	"github.com/stake-plus/legal-agent/src/logging"
	"github.com/stake-plus/legal-agent/src/query"
)

type Queries struct {
	svc Processor
}

func NewQueries(svc Processor) Queries {
	return Queries{svc: svc}
}

type queryRequest struct {
	Query             *string      `json:"query" binding:"required"`
	AdditionalDetails core.Details `json:"additional_details"`
}

// Create answers POST /query. Malformed bodies get 422; every downstream
// failure is a 500 carrying the error text.
func (q Queries) Create(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	res := q.svc.Process(c.Request.Context(), query.Request{
		Query:     *req.Query,
		Details:   req.AdditionalDetails,
		RequestID: c.GetString(logging.RequestIDKey),
	})
	if !res.OK() {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": res.Message()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": res.Text})
}
