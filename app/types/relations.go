package types

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownRelation = errors.New("unknown relation")

const (
	RelationItems = "items"
	RelationTodos = "todos"
)

// Relations is the set of related collections a caller asked to have loaded.
type Relations map[string]struct{}

func (r Relations) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// ParseRelations splits a comma separated relations parameter and rejects any name outside allowed.
func ParseRelations(raw string, allowed ...string) (Relations, error) {
	out := Relations{}
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if !contains(allowed, name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, name)
		}
		out[name] = struct{}{}
	}
	return out, nil
}

func contains(values []string, candidate string) bool {
	for _, value := range values {
		if value == candidate {
			return true
		}
	}
	return false
}
