package handler

import (
	"fmt"
	"sort"
	"strings"
)

const (
	maxIDs          = 10000
	maxIDLength     = 255
	maxNamespaceLen = 255
)

// ReindexRequest is the JSON body of POST /api/v1/index. Exactly one of IDs
// and All selects the scope.
type ReindexRequest struct {
	Kind      string   `json:"kind"`
	Namespace string   `json:"namespace,omitempty"`
	IDs       []string `json:"ids,omitempty"`
	All       bool     `json:"all,omitempty"`
	// Async hands the request to the reindex topic instead of running it.
	Async bool `json:"async,omitempty"`
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func ValidateReindexRequest(req *ReindexRequest) error {
	errs := make(map[string]string)

	if strings.TrimSpace(req.Kind) == "" {
		errs["kind"] = "kind is required"
	}
	if len(req.Namespace) > maxNamespaceLen {
		errs["namespace"] = fmt.Sprintf("namespace must be at most %d characters", maxNamespaceLen)
	}
	switch {
	case req.All && len(req.IDs) > 0:
		errs["ids"] = "ids must be empty when all is set"
	case !req.All && len(req.IDs) == 0:
		errs["ids"] = "ids are required unless all is set"
	case len(req.IDs) > maxIDs:
		errs["ids"] = fmt.Sprintf("at most %d ids per request", maxIDs)
	default:
		for _, id := range req.IDs {
			if id == "" || len(id) > maxIDLength {
				errs["ids"] = fmt.Sprintf("ids must be 1 to %d characters", maxIDLength)
				break
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
