package server

import (
	"errors"
	"net/http"
	"strings"

	"live-stats/src/helpers"
	"live-stats/src/models"
	"live-stats/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// ScopeParams turns a scope request into connection params. An empty locale
// keeps the current one; an empty country means the global scope.
func ScopeParams(req models.MScopeRequest, current models.MParams) models.MParams {
	locale := current.Locale
	if strings.TrimSpace(req.Locale) != "" {
		locale = utils.NormalizeLocale(req.Locale)
	}
	return models.MParams{
		Country: strings.ToUpper(strings.TrimSpace(req.Country)),
		Locale:  locale,
	}
}

// -----------------------------------------------------------------------------

// errorResponse maps a submission error to a status and a body. Server-side
// rejections keep their status and structured fields.
func errorResponse(err error) (int, gin.H) {
	var apiErr *helpers.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		return status, gin.H{
			"error":  firstNonEmpty(apiErr.Code, "api_error"),
			"title":  apiErr.Title,
			"detail": firstNonEmpty(apiErr.Detail, apiErr.Message),
		}
	}
	return http.StatusBadGateway, gin.H{"error": "upstream_unavailable", "detail": err.Error()}
}

// -----------------------------------------------------------------------------

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
