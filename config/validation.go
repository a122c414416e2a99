package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their config key rather than the Go field name.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks cfg and returns a *ConfigError describing the first
// invalid field.
func Validate(cfg *Config) error {
	if cfg == nil {
		return NewInvalidFieldError("config", "cannot be nil", nil)
	}

	err := structValidator().Struct(cfg)
	if err == nil {
		if obsErr := cfg.Observability.Validate(); obsErr != nil {
			return NewInvalidFieldError("observability", obsErr.Error(), nil)
		}
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewInvalidFieldError("config", err.Error(), nil)
	}

	fe := fieldErrs[0]
	field := fieldPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		envVar := EnvPrefix + strings.ToUpper(strings.ReplaceAll(field, ".", "_"))
		return NewMissingFieldError(field, envVar, field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("unsupported value %q", fe.Value()), strings.Fields(fe.Param()))
	case "gtefield":
		return NewInvalidFieldError(field, fmt.Sprintf("must be greater than or equal to %s", strings.ToLower(fe.Param())), nil)
	default:
		return NewInvalidFieldError(field, fmt.Sprintf("failed %q validation", fe.Tag()), nil)
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
