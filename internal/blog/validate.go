package blog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// describeBindError はリクエストのバインドエラーをクライアント向けの説明に変換する。
// Goの型名や構造体名は含めない。
func describeBindError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		reasons := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			reasons = append(reasons, describeField(fe))
		}
		return strings.Join(reasons, "; ")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s has an invalid type", typeErr.Field)
	}

	if errors.Is(err, io.EOF) {
		return "request body is empty"
	}
	return "malformed request body"
}

// describeField は1フィールドの検証エラーを説明する。
func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	default:
		return field + " is invalid"
	}
}
