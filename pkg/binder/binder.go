package binder

import (
	"encoding/json"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
)

var unknownFieldRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Binder implements echo.Binder for the two payload shapes the API takes:
// JSON bodies and GET query strings. Either way the struct is then trimmed
// with mold, filled with defaults and validated.
type Binder struct {
	query    *schema.Decoder
	conform  *mold.Transformer
	validate *validator.Validate
}

func New() (*Binder, error) {
	query := schema.NewDecoder()
	query.SetAliasTag("query")

	validate := validator.New()
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	for name, fn := range map[string]validator.Func{
		tagKind:       tagKindValidator,
		refreshReason: refreshReasonValidator,
		year:          yearValidator,
	} {
		if err := validate.RegisterValidation(name, fn); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return &Binder{query: query, conform: modifiers.New(), validate: validate}, nil
}

func (b *Binder) Bind(i interface{}, c echo.Context) error {
	if err := b.decode(i, c); err != nil {
		return err
	}
	if err := b.conform.Struct(c.Request().Context(), i); err != nil {
		return errors.WithStack(err)
	}
	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}
	if err := b.validate.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) || len(errs) == 0 {
			return errors.WithStack(err)
		}
		return errcodes.ValidationError(formatValidationError(errs[0]))
	}
	return nil
}

// decode reads a body when there is one and the query string of a bodyless
// GET or DELETE. Other bodyless requests are rejected unless the route sets
// "disallow_empty_body" to false.
func (b *Binder) decode(i interface{}, c echo.Context) error {
	req := c.Request()
	switch {
	case req.ContentLength > 0:
		if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
			return errcodes.UnsupportedMediaType()
		}
		return decodeJSON(i, c)
	case req.Method == http.MethodGet || req.Method == http.MethodDelete:
		return b.decodeQuery(i, c)
	case emptyBodyAllowed(c):
		return nil
	default:
		return errcodes.EmptyRequestBody()
	}
}

func emptyBodyAllowed(c echo.Context) bool {
	disallow, ok := c.Get("disallow_empty_body").(bool)
	return ok && !disallow
}

func decodeJSON(i interface{}, c echo.Context) error {
	body := c.Request().Body
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	err := dec.Decode(i)
	if err == nil {
		return nil
	}
	if m := unknownFieldRE.FindStringSubmatch(err.Error()); m != nil {
		return errcodes.UnknownParameter(m[1])
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}
	logger.FromEchoContext(c).Err(err).Warn("undecodable json body")
	return errcodes.MalformedPayload()
}

func (b *Binder) decodeQuery(i interface{}, c echo.Context) error {
	err := b.query.Decode(i, c.QueryParams())
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return errors.WithStack(err)
	}
	// Report one problem; map order makes the choice arbitrary.
	for _, e := range multi {
		var conv schema.ConversionError
		if errors.As(e, &conv) {
			return errcodes.ValidationTypeError(formatSchemaConversionError(conv))
		}
		var unknown schema.UnknownKeyError
		if errors.As(e, &unknown) {
			return errcodes.UnknownParameter(unknown.Key)
		}
		return errors.WithStack(e)
	}
	return errors.WithStack(err)
}
