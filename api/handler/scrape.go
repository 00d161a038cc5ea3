package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tablewatch/tablewatch/models"
)

// Dispatcher runs a batch of targets to completion. Implemented by
// engine.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, targets []models.ScrapeTarget) ([]*models.ScrapeOutcome, error)
}

// Recognizer is the OCR side path. Implemented by ocr.Bridge.
type Recognizer interface {
	Recognize(ctx context.Context, imageURL string) (string, error)
}

// Scrape returns the handler for POST /api/v1/scrape.
//
// Routing: an imageUrl takes the OCR path exclusively; otherwise the request
// must carry at least one of url/urls and is fanned out as a batch. A
// syntactically valid batch always answers 200; per-target failures live
// inside the result list.
func Scrape(d Dispatcher, r Recognizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}

		if req.ImageURL != "" {
			text, err := r.Recognize(c.Request.Context(), req.ImageURL)
			if err != nil {
				c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: errorMessage(err)})
				return
			}
			c.JSON(http.StatusOK, models.OCRResponse{OCR: text})
			return
		}

		targets := req.Targets()
		if len(targets) == 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing url or urls"})
			return
		}

		results, err := d.Dispatch(c.Request.Context(), targets)
		if err != nil {
			c.JSON(mapErrorToStatus(err), models.ErrorResponse{Error: errorMessage(err)})
			return
		}

		c.JSON(http.StatusOK, models.ScrapeResponse{Results: results})
	}
}

// errorMessage strips the internal code prefix for API consumers while
// keeping typed errors intact for status mapping.
func errorMessage(err error) string {
	if scrapeErr, ok := err.(*models.ScrapeError); ok {
		return scrapeErr.Message
	}
	return err.Error()
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(err error) int {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		return http.StatusInternalServerError
	}
	switch scrapeErr.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeOCR:
		return http.StatusBadGateway // 502
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
