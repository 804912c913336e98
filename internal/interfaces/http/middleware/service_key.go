package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otahub/backend/internal/interfaces/http/dto"
	"golang.org/x/crypto/bcrypt"
)

// ServiceKeyHeader carries the shared key of trusted service callers
const ServiceKeyHeader = "X-Service-Key"

// ServiceKey admits requests whose X-Service-Key matches the bcrypt hash.
// An empty hash admits nothing.
func ServiceKey(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(ServiceKeyHeader)
		if hash == "" || key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.StatusResponse{Status: dto.StatusInvalidServiceKey})
			return
		}
		c.Next()
	}
}
