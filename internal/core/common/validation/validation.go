package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/frahmantamala/muamalati/internal"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the portal rules and null types registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(jsonFieldName)
		registerNullTypes(v)
		if err := registerRules(v); err != nil {
			panic("failed to register validation rules: " + err.Error())
		}
		instance = v
	})
	return instance
}

// Struct validates s and reports every failing field as a ValidationError with a user-facing message.
func Struct(s interface{}) *apperrors.AppError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("بيانات غير صالحة", apperrors.ErrCodeValidationFailed).WithCause(err)
	}

	out := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Code:    string(apperrors.ErrCodeValidationFailed),
		})
	}
	return apperrors.NewValidationFieldErrors(out...)
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("الحقل %s مطلوب", fe.Field())
	case "email":
		return "البريد الإلكتروني غير صالح"
	case "min":
		return fmt.Sprintf("الحقل %s يجب أن يكون %s أحرف على الأقل", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("الحقل %s طويل جداً", fe.Field())
	case "oneof":
		return fmt.Sprintf("قيمة الحقل %s غير صالحة", fe.Field())
	case "gt":
		return fmt.Sprintf("الحقل %s مطلوب", fe.Field())
	case tagIraqiPhone:
		return "رقم الهاتف غير صالح (يجب أن يبدأ بـ 07)"
	case tagStrongPassword:
		return "كلمة المرور يجب أن تحتوي على حرف كبير، حرف صغير، رقم، ورمز خاص"
	case "nefield":
		return "كلمة المرور الجديدة يجب أن تختلف عن الحالية"
	}
	return fmt.Sprintf("قيمة الحقل %s غير صالحة", fe.Field())
}
