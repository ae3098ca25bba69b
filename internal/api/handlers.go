package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/history"
	"github.com/pdr-rating-server/internal/middleware"
	"github.com/pdr-rating-server/internal/refdata"
)

// medicalInputResponse flattens the result next to the history id
type medicalInputResponse struct {
	ID string `json:"id,omitempty"`
	*domain.RatingResult
}

type historyListResponse struct {
	Entries []*history.Entry `json:"entries"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

func (s *Server) handleHealth(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if err := s.calculator.Ping(c.Request.Context()); err != nil {
		s.logger.WithError(err).Warn("Health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   Version,
	})
}

func (s *Server) handleCalculate(c *gin.Context) {
	var input domain.RatingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.respondError(c, domain.NewValidationError("body", err.Error(), nil), false)
		return
	}

	result, err := s.calculator.CalculateRating(c.Request.Context(), &input)
	if err != nil {
		s.respondError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMedicalInput(c *gin.Context) {
	var req domain.MedicalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("body", err.Error(), nil), false)
		return
	}

	ctx := c.Request.Context()
	result, err := s.calculator.CalculateRating(ctx, &req.RatingInput)
	if err != nil {
		s.respondError(c, err, false)
		return
	}

	resp := medicalInputResponse{RatingResult: result}
	if s.history != nil {
		entry, err := history.NewEntry(req.Name, &req.RatingInput, result)
		if err != nil {
			s.respondError(c, err, false)
			return
		}
		if err := s.history.Save(ctx, entry); err != nil {
			s.logger.WithError(err).WithField("file_name", req.Name).Error("Failed to save rating history")
			s.respondError(c, err, false)
			return
		}
		resp.ID = entry.ID.String()
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit", history.DefaultListLimit)
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	limit, offset = history.NormalizePage(limit, offset)

	ctx := c.Request.Context()
	entries, err := s.history.List(ctx, limit, offset)
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	total, err := s.history.Count(ctx)
	if err != nil {
		s.respondError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, historyListResponse{Entries: entries, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleGetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, domain.NewValidationError("id", "id must be a UUID", c.Param("id")), true)
		return
	}

	entry, err := s.history.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, true)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleOccupationVariant(c *gin.Context) {
	occ, err := s.calculator.ResolveOccupation(c.Request.Context(), c.Param("title"))
	if err != nil {
		s.respondError(c, err, true)
		return
	}
	c.JSON(http.StatusOK, occ)
}

func (s *Server) handleImpairment(c *gin.Context) {
	desc, err := s.calculator.DescribeImpairment(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.respondError(c, err, true)
		return
	}
	c.JSON(http.StatusOK, desc)
}

// respondError writes err as an APIError. Lookup routes report missing
// reference rows as 404 rather than 422.
func (s *Server) respondError(c *gin.Context, err error, lookup bool) {
	code := domain.ErrorCode(err)
	if errors.Is(err, refdata.ErrUnavailable) {
		code = domain.CodeServiceUnavailable
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	details := err.Error()

	switch code {
	case domain.CodeInvalidInput:
		status, message = http.StatusBadRequest, "Invalid input"
	case domain.CodeOccupationNotFound:
		status, message = http.StatusUnprocessableEntity, "Occupation not found"
	case domain.CodeReferenceDataNotFound:
		status, message = http.StatusUnprocessableEntity, "Reference data not found"
	case domain.CodeNotFound:
		status, message = http.StatusNotFound, "Not found"
	case domain.CodeServiceUnavailable:
		status, message = http.StatusServiceUnavailable, "Reference data temporarily unavailable"
	default:
		details = ""
	}
	if lookup && status == http.StatusUnprocessableEntity {
		status = http.StatusNotFound
	}

	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"correlation_id": middleware.GetCorrelationID(c),
			"path":           c.FullPath(),
		}).WithError(err).Error("Request failed")
	}

	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, middleware.GetCorrelationID(c)))
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer", raw)
	}
	return n, nil
}
