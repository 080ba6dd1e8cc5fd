// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

//go:embed activities.json
var builtin []byte

var (
	ErrActivityNotFound  = errors.New("ACTIVITY_NOT_FOUND")
	ErrDuplicateTaskType = errors.New("DUPLICATE_TASK_TYPE")
	ErrInvalidActivity   = errors.New("INVALID_ACTIVITY")
)

var validStatuses = map[string]bool{
	"planned":     true,
	"in-progress": true,
	"completed":   true,
	"verified":    true,
}

// Default returns the registry compiled into the binary.
func Default() *ActivityRegistry {
	reg, err := parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("registry: embedded activities.json: %v", err))
	}
	return reg
}

// LoadRegistry reads a registry file. An empty path yields Default.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON and stamps LastUpdated.
func (r *ActivityRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Find looks an activity up by task type.
func (r *ActivityRegistry) Find(taskType string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, taskType)
}

// Validate checks required fields, statuses, timeouts and task type
// uniqueness.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]string, len(r.Activities))
	for _, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" || a.DisplayName == "" {
			return fmt.Errorf("%w: %q is missing id, taskType or displayName", ErrInvalidActivity, a.ID)
		}
		if !validStatuses[a.ImplementationStatus] {
			return fmt.Errorf("%w: %s has status %q", ErrInvalidActivity, a.ID, a.ImplementationStatus)
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("%w: %s timeout: %v", ErrInvalidActivity, a.ID, err)
			}
		}
		if a.Retries < 0 {
			return fmt.Errorf("%w: %s has negative retries", ErrInvalidActivity, a.ID)
		}
		if other, ok := seen[a.TaskType]; ok {
			return fmt.Errorf("%w: %s used by %s and %s", ErrDuplicateTaskType, a.TaskType, other, a.ID)
		}
		seen[a.TaskType] = a.ID
	}
	return nil
}
