package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAdminRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(isAdmin bool) *gin.Engine {
		router := gin.New()
		router.GET("/admin-only",
			func(c *gin.Context) { c.Set("isAdmin", isAdmin) },
			AdminRequired(),
			func(c *gin.Context) { c.String(http.StatusOK, "ok") },
		)
		return router
	}

	// 管理员放行
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	newRouter(true).ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// 非管理员拒绝，后续处理函数不执行
	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	newRouter(false).ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "需要管理员权限")
	assert.NotContains(t, recorder.Body.String(), "ok")
}
