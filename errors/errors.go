package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"realestate-marketplace-onchain/handler/middleware"
	"realestate-marketplace-onchain/model"
)

// エラーレスポンスのコード
const (
	ErrBadRequest            = "BAD_REQUEST"
	ErrValidation            = "VALIDATION_ERROR"
	ErrInternalServer        = "INTERNAL_SERVER_ERROR"
	ErrProviderAbsent        = "PROVIDER_ABSENT"
	ErrAuthorizationRejected = "AUTHORIZATION_REJECTED"
	ErrWalletNotConnected    = "WALLET_NOT_CONNECTED"
	ErrActionInFlight        = "ACTION_IN_FLIGHT"
	ErrInvalidAmount         = "INVALID_AMOUNT"
	ErrInvalidTab            = "INVALID_TAB"
	ErrPropertyNotFetched    = "PROPERTY_NOT_FETCHED"
	ErrNotForSale            = "NOT_FOR_SALE"
	ErrTransactionReverted   = "TRANSACTION_REVERTED"
	ErrTransactionFailed     = "TRANSACTION_FAILED"
	ErrReadFailed            = "READ_FAILED"
	ErrInvalidHash           = "INVALID_TX_HASH"
)

// ErrorResponse はエラーレスポンスの最上位構造
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail はエラーの内容
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

var classes = []struct {
	target error
	status int
	code   string
}{
	{model.ErrNoProvider, http.StatusServiceUnavailable, ErrProviderAbsent},
	{model.ErrAuthorizationRejected, http.StatusForbidden, ErrAuthorizationRejected},
	{model.ErrNotConnected, http.StatusServiceUnavailable, ErrWalletNotConnected},
	{model.ErrActionInFlight, http.StatusConflict, ErrActionInFlight},
	{model.ErrInvalidAmount, http.StatusBadRequest, ErrInvalidAmount},
	{model.ErrInvalidTab, http.StatusBadRequest, ErrInvalidTab},
	{model.ErrInvalidHash, http.StatusBadRequest, ErrInvalidHash},
	{model.ErrPropertyNotFetched, http.StatusConflict, ErrPropertyNotFetched},
	{model.ErrNotForSale, http.StatusConflict, ErrNotForSale},
	{model.ErrTransactionReverted, http.StatusUnprocessableEntity, ErrTransactionReverted},
	{model.ErrTransactionFailed, http.StatusBadGateway, ErrTransactionFailed},
	{model.ErrReadFailed, http.StatusBadGateway, ErrReadFailed},
}

// Classify はエラーをHTTPステータスとエラーコードに対応付ける
func Classify(err error) (int, string) {
	for _, c := range classes {
		if stderrors.Is(err, c.target) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, ErrInternalServer
}

// FromError はerrに対応するレスポンスを書き込む。分類できないエラーは詳細をログにのみ出す
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	message := err.Error()

	fields := map[string]interface{}{
		"code":   code,
		"path":   r.URL.Path,
		"method": r.Method,
	}
	if log := middleware.GetLogger(r.Context()); log != nil {
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, fields)
		} else {
			log.Warn("Request rejected", mergeErr(fields, err))
		}
	}

	if code == ErrInternalServer {
		message = "internal server error"
	}
	write(w, r, status, ErrorDetail{Code: code, Message: message})
}

// BadRequest は400レスポンスを返す
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	if log := middleware.GetLogger(r.Context()); log != nil {
		log.Warn("Bad request", map[string]interface{}{
			"message": message,
			"path":    r.URL.Path,
		})
	}
	write(w, r, http.StatusBadRequest, ErrorDetail{Code: ErrBadRequest, Message: message})
}

// ValidationError は検証に失敗したフィールドを列挙した400レスポンスを返す
func ValidationError(w http.ResponseWriter, r *http.Request, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{})
	for _, fe := range validationErrors {
		details[fe.Field()] = formatValidationError(fe)
	}

	if log := middleware.GetLogger(r.Context()); log != nil {
		log.Warn("Validation error", map[string]interface{}{
			"path":   r.URL.Path,
			"fields": details,
		})
	}

	write(w, r, http.StatusBadRequest, ErrorDetail{
		Code:    ErrValidation,
		Message: "Validation failed for one or more fields",
		Details: details,
	})
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}

func mergeErr(fields map[string]interface{}, err error) map[string]interface{} {
	fields["error"] = err.Error()
	return fields
}

func write(w http.ResponseWriter, r *http.Request, status int, detail ErrorDetail) {
	detail.RequestID = middleware.GetRequestID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: detail})
}
