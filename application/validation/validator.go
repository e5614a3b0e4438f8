// Package validation checks bridge configuration before use.
package validation

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/aj-geddes/revitpy-sub005/application/schema"
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/multierr"
)

const schemaURL = "config.schema.json"

// ConfigValidator validates configuration in two passes: struct tags
// through go-playground/validator, then the JSON form against the
// generated config schema.
type ConfigValidator struct {
	validate *validator.Validate
	schema   *jsonschema.Schema
}

var _ ports.ConfigValidator = (*ConfigValidator)(nil)

// NewConfigValidator creates a validator and compiles the config schema.
func NewConfigValidator() (*ConfigValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("failed to register glob validation: %w", err)
	}

	raw, err := schema.ConfigSchema()
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add config schema: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid config schema: %w", err)
	}

	return &ConfigValidator{validate: v, schema: sch}, nil
}

// Validate returns every problem found as *errors.ConfigError values
// combined with multierr. errors.As yields the first one.
func (v *ConfigValidator) Validate(cfg *entities.Config) error {
	if cfg == nil {
		return &errors.ConfigError{Err: fmt.Errorf("config is nil")}
	}

	var errs error
	if err := v.validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stdErrors.As(err, &fieldErrs) {
			return &errors.ConfigError{Err: err}
		}
		for _, fe := range fieldErrs {
			errs = multierr.Append(errs, &errors.ConfigError{
				Field: fieldPath(fe.Namespace()),
				Err:   fmt.Errorf("failed on the '%s' rule (value %v)", ruleName(fe), fe.Value()),
			})
		}
	}
	if errs != nil {
		return errs
	}

	// The JSON form uses the json tags the schema was generated from.
	b, err := json.Marshal(cfg)
	if err != nil {
		return &errors.ConfigError{Err: fmt.Errorf("failed to prepare validation object: %w", err)}
	}
	var obj interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return &errors.ConfigError{Err: fmt.Errorf("failed to prepare validation object: %w", err)}
	}
	if err := v.schema.Validate(obj); err != nil {
		var ve *jsonschema.ValidationError
		if stdErrors.As(err, &ve) {
			return &errors.ConfigError{Field: strings.TrimPrefix(ve.InstanceLocation, "/"), Err: ve}
		}
		return &errors.ConfigError{Err: err}
	}
	return nil
}

func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return path
}

func ruleName(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}
