package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// engine is shared by every request DTO. Rules and messages are registered
// from init functions, before any validation runs.
var engine *playground.Validate

var messages = map[string]string{
	"required":  "is required",
	"notblank":  "must not be blank",
	"timestamp": "must be YYYY-MM-DD or an ISO-8601 timestamp",
}

func init() {
	engine = playground.New()
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(engine.RegisterValidation("notblank", validators.NotBlank))
	RegisterRule("timestamp", func(value string) bool {
		_, ok := ParseTimestamp(value)
		return ok
	}, messages["timestamp"])
}

func mustRegister(err error) {
	if err != nil {
		panic(fmt.Sprintf("validator: %v", err))
	}
}

// RegisterRule adds a string rule usable as a validate tag. Pointers are
// dereferenced and named string types are accepted.
func RegisterRule(tag string, fn func(value string) bool, message string) {
	mustRegister(engine.RegisterValidation(tag, func(fl playground.FieldLevel) bool {
		return fn(fl.Field().String())
	}))
	messages[tag] = message
}

// RegisterStructRule adds a cross-field rule for the given struct types.
// Errors reported by fn use tag to look up their message.
func RegisterStructRule(fn playground.StructLevelFunc, tag, message string, types ...any) {
	engine.RegisterStructValidation(fn, types...)
	messages[tag] = message
}

// Struct validates s against its validate tags. Field errors come back as
// ValidationErrors named after the json path, e.g. files[1].record_id.
func Struct(s any) error {
	err := engine.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

func fieldPath(fe playground.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe playground.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}

	isBytes := fe.Kind() == reflect.Slice && fe.Type().Elem().Kind() == reflect.Uint8
	switch fe.Tag() {
	case "min":
		switch {
		case isBytes:
			return fmt.Sprintf("must be at least %s bytes", fe.Param())
		case fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map:
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		case fe.Kind() == reflect.String:
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		switch {
		case isBytes:
			return fmt.Sprintf("must not exceed %s bytes", fe.Param())
		case fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map:
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		case fe.Kind() == reflect.String:
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
