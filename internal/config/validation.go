package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags across the whole configuration tree.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s (value: %v)", e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
