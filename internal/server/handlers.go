package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spigell/opportunity-matcher/internal/recommend"
	"go.uber.org/zap"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type errorResponse struct {
	Error string         `json:"error"`
	Code  recommend.Code `json:"code"`
	Raw   string         `json:"raw,omitempty"`
}

type handler struct {
	recommender Recommender
	logger      *zap.Logger
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) generate(c *gin.Context) {
	log := requestLog(c, h.logger)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("request body rejected", zap.Error(err))
		req.Prompt = ""
	}

	result, err := h.recommender.Recommend(c.Request.Context(), req.Prompt)
	if err != nil {
		recErr := recommend.Classify(err, 0)

		log.Warn("recommendation request failed",
			zap.String("code", string(recErr.Code)),
			zap.Error(err),
		)

		c.JSON(statusFor(recErr.Code), errorResponse{
			Error: recErr.Message,
			Code:  recErr.Code,
			Raw:   recErr.Raw,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func statusFor(code recommend.Code) int {
	switch code {
	case recommend.CodeInvalidInput:
		return http.StatusBadRequest
	case recommend.CodeEmbeddingFailed, recommend.CodeModelCallFailed, recommend.CodeReasonExtraction:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
