package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK represents success.
var OK = &Errno{Code: 0, HTTP: http.StatusOK, GRPCCode: codes.OK, MessageEN: "success", MessageZH: "成功"}

// Common errors shared by all services.
var (
	ErrBadRequest         = NewRequestErr(ServiceCommon, 1, "Bad request", "请求错误")
	ErrInvalidParam       = NewRequestErr(ServiceCommon, 2, "Invalid parameter", "参数无效")
	ErrRequestTooLarge    = NewError(ServiceCommon, CategoryRequest, 3, http.StatusRequestEntityTooLarge, codes.InvalidArgument, "Request body too large", "请求体过大")
	ErrNotFound           = NewNotFoundErr(ServiceCommon, 1, "Resource not found", "资源不存在")
	ErrRouteNotFound      = NewNotFoundErr(ServiceCommon, 2, "Route not found", "路由不存在")
	ErrInternal           = NewInternalErr(ServiceCommon, 1, "Internal server error", "服务器内部错误")
	ErrPanic              = NewInternalErr(ServiceCommon, 2, "Internal server error", "服务器内部错误")
	ErrServiceUnavailable = NewNetworkErr(ServiceCommon, 1, "Service unavailable", "服务不可用")
	ErrTimeout            = NewTimeoutErr(ServiceCommon, 1, "Request timeout", "请求超时")
)
