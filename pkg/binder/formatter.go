package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/iancoleman/strcase"
	"github.com/segmentio/encoding/json"
)

const (
	gtefield = "gtefield"
	mx       = "max"
	mn       = "min"
	oneof    = "oneof"
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

// formatValidationError phrases the first failed rule for an API client.
// Only the rules request structs use are spelled out.
func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case tagKind:
		return fmt.Sprintf("%q must be one of the following: %s", field, quoteAll(models.TagKinds))
	case refreshReason:
		return fmt.Sprintf("%q must be one of the following: %s", field, quoteAll(refreshReasons))
	case year:
		return fmt.Sprintf("%q must be a year between %d and %d", field, minYear, maxYear)
	case gtefield:
		// Param is the Go field name; the JSON names are its snake case.
		return fmt.Sprintf("%q must be greater than or equal to %q", field, strcase.ToSnake(err.Param()))
	case oneof:
		return fmt.Sprintf("%q must be one of the following: %s", field, quoteAll(strings.Fields(err.Param())))
	case mx:
		return fmt.Sprintf("%q %s less than or equal to %s", field, bound(err), amount(err))
	case mn:
		return fmt.Sprintf("%q %s greater than or equal to %s", field, bound(err), amount(err))
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

// bound is "must be" for numbers and "length must be" for strings and lists.
func bound(err validator.FieldError) string {
	if numeric(err.Kind()) {
		return "must be"
	}
	return "length must be"
}

// amount is the limit, with a unit for strings and lists.
func amount(err validator.FieldError) string {
	if numeric(err.Kind()) {
		return err.Param()
	}
	unit := "character"
	if err.Kind() == reflect.Slice {
		unit = "element"
	}
	if err.Param() != "1" {
		unit += "s"
	}
	return err.Param() + " " + unit
}

func numeric(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func quoteAll(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, fmt.Sprintf("%q", v))
	}
	return strings.Join(quoted, ", ")
}
