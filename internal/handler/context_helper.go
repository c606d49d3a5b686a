package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

// instituteFromContext returns the tenant carried by the verified token. The request body
// is never consulted.
func instituteFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || strings.TrimSpace(claims.InstituteID) == "" {
		return "", appErrors.ErrTenantRequired
	}
	return strings.TrimSpace(claims.InstituteID), nil
}

func timetableIDParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "timetable id must be a positive integer")
	}
	return id, nil
}
