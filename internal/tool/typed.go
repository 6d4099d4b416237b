package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validatable is implemented by argument types with cross-field rules
// that struct tags cannot express.
type Validatable interface {
	Validate() error
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Spec describes a typed tool.
type Spec[T any] struct {
	Name          string
	Description   string
	BestPractices string
	Schema        map[string]any
	Handler       func(ctx context.Context, args T) (*Result, error)
}

// Typed is a Tool whose arguments decode into T and are validated before
// the handler runs.
type Typed[T any] struct {
	spec Spec[T]
}

// NewTyped builds a Tool from a typed handler.
func NewTyped[T any](spec Spec[T]) *Typed[T] {
	return &Typed[T]{spec: spec}
}

func (t *Typed[T]) Name() string               { return t.spec.Name }
func (t *Typed[T]) Description() string        { return t.spec.Description }
func (t *Typed[T]) BestPractices() string      { return t.spec.BestPractices }
func (t *Typed[T]) Parameters() map[string]any { return t.spec.Schema }

// Execute decodes and validates params, then calls the handler.
// Decoding and validation failures are returned as errors.
func (t *Typed[T]) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	args, err := Decode[T](params)
	if err != nil {
		return nil, err
	}
	return t.spec.Handler(ctx, args)
}

// Decode unmarshals params into T and validates it.
func Decode[T any](params json.RawMessage) (T, error) {
	var args T
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return args, fmt.Errorf("invalid parameters: %w", err)
	}
	if err := Validate(args); err != nil {
		return args, err
	}
	return args, nil
}

// Validate runs struct-tag validation and, when implemented, Validatable.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("invalid parameters: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if c, ok := v.(Validatable); ok {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid parameters: %w", err)
		}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "datetime":
		return fmt.Sprintf("%s must match layout %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
