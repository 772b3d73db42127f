// Package response 定义统一的 JSON 响应结构。
//
// 所有接口返回 {status, code, message, data?} 的固定包裹结构，
// status 只有 "success" 与 "error" 两种取值。
package response

import "github.com/gin-gonic/gin"

// Body 是统一的响应包裹结构。
type Body struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 写出成功响应。
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Body{
		Status:  "success",
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Error 写出错误响应。message 必须是对外安全的描述，
// 内部错误细节只进日志，不进响应体。
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Body{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// AbortError 写出错误响应并中断后续处理，供中间件使用。
func AbortError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Body{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
