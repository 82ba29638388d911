package middleware

import "github.com/gin-gonic/gin"

const adminSubjectKey = "admin_subject"

// GetAdminSubject возвращает subject токена, прошедшего AdminJWT.
func GetAdminSubject(c *gin.Context) (string, bool) {
	v, ok := c.Get(adminSubjectKey)
	if !ok {
		return "", false
	}
	subject, ok := v.(string)
	return subject, ok
}
