// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-provided
// identifiers.
//
// Session, buffer, and branch names come straight from callers and end up
// in storage keys and log lines; validating them here keeps key namespaces
// unambiguous and prevents path-style traversal through composed keys.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidName indicates a name failed format validation.
var ErrInvalidName = errors.New("invalid name")

// namePattern matches valid resource names: must start with a letter or
// digit; letters, digits, dots, hyphens, and underscores after that.
// Max length: 64 characters.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// ValidateName validates a session, buffer, or branch name.
//
// Valid names:
//   - 1-64 characters
//   - Letters and digits, starting with one
//   - Dots, hyphens, and underscores in later positions
//
// Example:
//
//	if err := validation.ValidateName(name); err != nil {
//	    return nil, fmt.Errorf("buffer name: %w", err)
//	}
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (must be 1-64 alphanumeric chars, dots, hyphens, or underscores)",
			ErrInvalidName, name)
	}
	return nil
}

// ValidateNames validates multiple names, reporting every invalid one.
func ValidateNames(names ...string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateName(n); err != nil {
			invalid = append(invalid, n)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidName, invalid)
	}
	return nil
}

// SanitizeName trims surrounding whitespace and validates the result.
// Returns the cleaned name if valid.
func SanitizeName(name string) (string, error) {
	cleaned := strings.TrimSpace(name)
	if err := ValidateName(cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}
