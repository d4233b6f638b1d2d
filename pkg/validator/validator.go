// Package validator holds small combinators used to validate component
// definitions and configuration.
package validator

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"
)

// All returns the first non-nil error.
func All(errors ...error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

func Map[T any](items []T, f func(T, string) error, description string) error {
	for i, item := range items {
		if err := f(item, fmt.Sprintf("%s[%d]", description, i)); err != nil {
			return err
		}
	}
	return nil
}

// MapDict applies f to every entry in key order.
func MapDict[T any](items map[string]T, f func(string, T) error, description string) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if err := f(key, items[key]); err != nil {
			return fmt.Errorf("%s: %w", description, err)
		}
	}
	return nil
}

func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

func NoDuplicates[T comparable](slice []T, description string) error {
	seen := make(map[T]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

// Identifier checks that field is usable as a script binding name.
func Identifier(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	for i, r := range field {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return fmt.Errorf("%s %q is not a valid identifier", description, field)
	}
	return nil
}

// NoInterpolation rejects {{ }} spans in fields that are used verbatim.
func NoInterpolation(field, description string) error {
	if strings.Contains(field, "{{") {
		return fmt.Errorf("%s must not contain interpolation", description)
	}
	return nil
}

// DirExists checks that path names an existing directory.
func DirExists(path, description string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%s: %s is not a directory", description, path)
	}
	return nil
}
