package tools

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chitieu/finbot/core"
	apperrors "github.com/chitieu/finbot/errors"
)

var validate = newValidator()

// newValidator reports fields by their JSON names, which is what the model sees.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode strictly unmarshals tool input into dst and validates it. It returns
// nil when the arguments are acceptable, otherwise the failed result to hand
// back to the model. Unknown fields are rejected so a malformed call never
// reaches the handler.
func Decode(input json.RawMessage, dst interface{}) *core.ToolResult {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.ToolFailure(apperrors.ErrValidation.Code, fmt.Sprintf("invalid input: %v", err))
	}

	if err := validate.Struct(dst); err != nil {
		return core.ToolFailure(apperrors.ErrValidation.Code, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return fmt.Sprintf("invalid input: %v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q check", field, fe.Tag()))
		}
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}
