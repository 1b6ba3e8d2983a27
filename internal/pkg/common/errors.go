package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"error"`             // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 取出原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is(err, ErrNoMatches) 之類的判斷成立
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// NewInvalidInputError 輸入不合法
func NewInvalidInputError(message string, err error) *CustomError {
	return NewError(ErrCodeInvalidInput, message, http.StatusBadRequest, err)
}

// NewUpstreamError 主要路徑上的外部依賴不可用
func NewUpstreamError(message string, err error) *CustomError {
	return NewError(ErrCodeUpstreamUnavailable, message, http.StatusServiceUnavailable, err)
}

// NewPartialEnrichmentError 單一候選食譜補全失敗（不中斷整體流程）
func NewPartialEnrichmentError(message string, err error) *CustomError {
	return NewError(ErrCodePartialEnrichment, message, http.StatusOK, err)
}

// CodeOf 取得錯誤代碼，非 CustomError 時回傳 INTERNAL_ERROR
func CodeOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternalError
}

// StatusOf 取得對應的 HTTP 狀態碼
func StatusOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Status != 0 {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeInvalidInput    = "INVALID_INPUT"     // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError       = "INTERNAL_ERROR"       // 500
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"  // 503
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout      = "GATEWAY_TIMEOUT"      // 504

	// 推薦流程結果
	ErrCodeNoMatches         = "NO_MATCHES"
	ErrCodePartialEnrichment = "PARTIAL_ENRICHMENT_FAILURE"
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrInvalidInput    = NewError(ErrCodeInvalidInput, "輸入參數不合法", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError       = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable  = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrUpstreamUnavailable = NewError(ErrCodeUpstreamUnavailable, "外部服務不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout      = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrNoMatches = NewError(ErrCodeNoMatches, "沒有符合條件的食譜", http.StatusNotFound, nil)
)
