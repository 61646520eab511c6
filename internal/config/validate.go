package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInclude indicates no include patterns were configured
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrEmptyDialect indicates no dialect import prefixes were configured
	ErrEmptyDialect = errors.New("empty dialect prefixes")

	// ErrInvalidIdentifier indicates a configured name is not a Python identifier
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidExtension indicates a stylesheet extension without a leading dot
	ErrInvalidExtension = errors.New("invalid stylesheet extension")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrEmptyDBPath indicates a missing database path
	ErrEmptyDBPath = errors.New("empty database path")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validateDialect(&cfg.Dialect); err != nil {
		errs = append(errs, err)
	}

	if err := validateExtract(&cfg.Extract); err != nil {
		errs = append(errs, err)
	}

	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	if len(cfg.Include) == 0 {
		return fmt.Errorf("%w: at least one include pattern is required", ErrEmptyInclude)
	}
	return nil
}

func validateDialect(cfg *DialectConfig) error {
	var errs []error

	if len(cfg.Prefixes) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one import prefix is required", ErrEmptyDialect))
	}
	for _, prefix := range cfg.Prefixes {
		for _, part := range strings.Split(prefix, ".") {
			if !isIdentifier(part) {
				errs = append(errs, fmt.Errorf("%w: prefix '%s'", ErrInvalidIdentifier, prefix))
				break
			}
		}
	}

	if !isIdentifier(cfg.IDKeyword) {
		errs = append(errs, fmt.Errorf("%w: id_keyword '%s'", ErrInvalidIdentifier, cfg.IDKeyword))
	}

	for _, name := range cfg.AttachMethods {
		if !isIdentifier(name) {
			errs = append(errs, fmt.Errorf("%w: attach method '%s'", ErrInvalidIdentifier, name))
		}
	}

	for _, name := range cfg.InlineCSSAttributes {
		if !isIdentifier(name) {
			errs = append(errs, fmt.Errorf("%w: inline css attribute '%s'", ErrInvalidIdentifier, name))
		}
	}

	for _, ext := range cfg.StylesheetExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("%w: must start with '.', got '%s'", ErrInvalidExtension, ext))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateExtract(cfg *ExtractConfig) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidWorkers, cfg.Workers)
	}
	return nil
}

func validateStorage(cfg *StorageConfig) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return ErrEmptyDBPath
	}
	return nil
}

// isIdentifier reports whether s is an ASCII Python identifier.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
