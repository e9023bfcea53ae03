package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response standard response structure
type Response struct {
	Code      ResponseCode `json:"code"`
	Message   string       `json:"message"`
	Data      interface{}  `json:"data,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// SuccessResponse returns success response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      CodeSuccess,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// CreatedResponse returns 201 response with the created entity
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:      CodeSuccess,
		Message:   "created",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// ErrorResponse returns error response with explicit HTTP status
func ErrorResponse(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, Response{
		Code:      ResponseCode(httpCode),
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

// AppErrorResponse returns error response derived from an application error
func AppErrorResponse(c *gin.Context, err error) {
	code := GetErrorCode(err)
	c.JSON(HTTPStatus(code), Response{
		Code:      code,
		Message:   GetErrorMessage(err),
		Timestamp: time.Now().Unix(),
	})
}

// OffsetPageResponse offset page response structure
type OffsetPageResponse struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// SuccessPageResponse returns success offset page response
func SuccessPageResponse(c *gin.Context, list interface{}, total int64, page, limit int) {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: OffsetPageResponse{
			List:       list,
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
		Timestamp: time.Now().Unix(),
	})
}

// CursorPageResponse cursor page response structure
type CursorPageResponse struct {
	List       interface{} `json:"list"`
	NextCursor *string     `json:"next_cursor"`
	HasMore    bool        `json:"has_more"`
}

// SuccessCursorResponse returns success cursor page response
func SuccessCursorResponse(c *gin.Context, list interface{}, nextCursor *string, hasMore bool) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: CursorPageResponse{
			List:       list,
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
		Timestamp: time.Now().Unix(),
	})
}
