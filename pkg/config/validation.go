package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittodrive/pkg/identity"
)

var validate = validator.New()

// Validate validates the configuration using struct tags and the rules
// that depend on the selected backends.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Metadata.Type == "postgres" {
		if err := cfg.Metadata.Postgres.Validate(); err != nil {
			return fmt.Errorf("metadata.postgres: %w", err)
		}
	}

	switch cfg.Blob.Type {
	case "fs":
		if cfg.Blob.FS.Path == "" {
			return errors.New("blob.fs.path: required when blob.type is fs")
		}
	case "s3":
		if cfg.Blob.S3.Bucket == "" {
			return errors.New("blob.s3.bucket: required when blob.type is s3")
		}
	}

	if err := cfg.Identity.Database.Validate(); err != nil {
		return fmt.Errorf("identity.database: %w", err)
	}

	if u := cfg.Identity.InitialUser; u.Email != "" {
		if err := identity.ValidatePassword(u.Password); err != nil {
			return fmt.Errorf("identity.initial_user.password: %w", err)
		}
	}

	return nil
}

// formatValidationError reports the first failed field with its tag.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
