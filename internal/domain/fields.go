package domain

import (
	"fmt"
	"strings"
)

// Common optional fields
const (
	FieldOwner     = "owner"
	FieldTags      = "tags"
	FieldFollowers = "followers"
)

// Fields is the set of optional relations a caller asked to hydrate
type Fields map[string]struct{}

// Contains reports whether the field was requested
func (f Fields) Contains(name string) bool {
	_, ok := f[name]
	return ok
}

// InvalidFieldError reports a field name the entity does not support
type InvalidFieldError struct {
	Field string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("Invalid field name %s", e.Field)
}

// ParseFields parses a comma separated fields parameter against the allowed set
func ParseFields(allowed []string, param string) (Fields, error) {
	fields := Fields{}
	param = strings.TrimSpace(param)
	if param == "" {
		return fields, nil
	}
	valid := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		valid[a] = true
	}
	for _, name := range strings.Split(param, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !valid[name] {
			return nil, &InvalidFieldError{Field: name}
		}
		fields[name] = struct{}{}
	}
	return fields, nil
}

// AllFields returns a field set containing every allowed field
func AllFields(allowed []string) Fields {
	fields := make(Fields, len(allowed))
	for _, a := range allowed {
		fields[a] = struct{}{}
	}
	return fields
}
