package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeWorkflow     ErrorType = "WORKFLOW_ERROR"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidBody      ErrorCode = "INVALID_BODY"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"
	ErrCodeInvalidReference ErrorCode = "INVALID_REFERENCE"

	ErrCodeTransactionNotFound  ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeNotificationNotFound ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	ErrCodeForbidden            ErrorCode = "FORBIDDEN"
	ErrCodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrCodeMissingField         ErrorCode = "MISSING_FIELD"

	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodeDuplicate          ErrorCode = "DUPLICATE"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeWrongPassword      ErrorCode = "WRONG_PASSWORD"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeMissingToken       ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

// Is matches on Code so sentinel values survive WithCause/WithDetails copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy so shared sentinels are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationFieldErrors(ValidationError{Field: field, Message: message, Code: string(code)})
}

func NewValidationFieldErrors(fields ...ValidationError) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "بيانات غير صالحة",
		StatusCode: http.StatusBadRequest,
		Details:    ValidationErrors{Errors: fields},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInvalidTransitionError reports a status change that is not an edge of the workflow.
func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Type:       ErrorTypeWorkflow,
		Code:       ErrCodeInvalidTransition,
		Message:    fmt.Sprintf("لا يمكن تغيير حالة المعاملة من %s إلى %s", from, to),
		StatusCode: http.StatusBadRequest,
		Details:    map[string]string{"from": from, "to": to},
	}
}

func NewMissingFieldError(field string) *AppError {
	return &AppError{
		Type:       ErrorTypeWorkflow,
		Code:       ErrCodeMissingField,
		Message:    fmt.Sprintf("الحقل %s مطلوب", field),
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{Errors: []ValidationError{
			{Field: field, Message: fmt.Sprintf("الحقل %s مطلوب", field), Code: string(ErrCodeMissingField)},
		}},
	}
}

var (
	ErrTransactionNotFound  = NewNotFoundError("المعاملة غير موجودة", ErrCodeTransactionNotFound)
	ErrNotificationNotFound = NewNotFoundError("الإشعار غير موجود", ErrCodeNotificationNotFound)
	ErrUserNotFound         = NewNotFoundError("المستخدم غير موجود", ErrCodeUserNotFound)
	ErrForbidden            = NewForbiddenError("ليس لديك صلاحية للقيام بهذا الإجراء", ErrCodeForbidden)
	ErrInvalidBody          = NewValidationError("صيغة الطلب غير صحيحة", ErrCodeInvalidBody)
	ErrInvalidID            = NewValidationError("معرف غير صالح", ErrCodeInvalidID)

	ErrEmailTaken         = NewConflictError("البريد الإلكتروني مسجل مسبقاً", ErrCodeEmailTaken)
	ErrInvalidCredentials = NewUnauthorizedError("البريد الإلكتروني أو كلمة المرور غير صحيحة", ErrCodeInvalidCredentials)
	ErrWrongPassword      = NewUnauthorizedError("كلمة المرور الحالية غير صحيحة", ErrCodeWrongPassword)
	ErrUserInactive       = NewForbiddenError("الحساب غير نشط", ErrCodeUserInactive)
	ErrMissingToken       = NewUnauthorizedError("لم يتم توفير رمز المصادقة", ErrCodeMissingToken)
	ErrInvalidToken       = NewUnauthorizedError("رمز المصادقة غير صالح", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("انتهت صلاحية رمز المصادقة", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// AsAppError maps any error onto the taxonomy, translating driver errors on the way.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := IsAppError(err); ok {
		return appErr
	}
	if dbErr := TranslateDBError(err); dbErr != nil {
		return dbErr
	}
	return NewInternalError("حدث خطأ في الخادم", err)
}

// TranslateDBError recognises unique and foreign-key violations from postgres and sqlite.
func TranslateDBError(err error) *AppError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return NewConflictError("البيانات موجودة مسبقاً", ErrCodeDuplicate).WithCause(err)
		case "23503":
			return NewValidationError("مرجع غير صالح", ErrCodeInvalidReference).WithCause(err)
		}
		return nil
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return NewConflictError("البيانات موجودة مسبقاً", ErrCodeDuplicate).WithCause(err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return NewValidationError("مرجع غير صالح", ErrCodeInvalidReference).WithCause(err)
	}
	return nil
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
