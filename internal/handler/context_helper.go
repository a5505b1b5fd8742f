package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/intern-tracker-api/internal/middleware"
	"github.com/noah-isme/intern-tracker-api/internal/models"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// pageParams reads page and per_page (or limit) query parameters.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, err := strconv.Atoi(c.Query("per_page"))
	if err != nil {
		size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	}
	return models.NormalizePage(page, size)
}

// bindJSON decodes the body into dst and writes a 400 response when it is malformed.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}
