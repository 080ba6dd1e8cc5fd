// pkg/registry/schema.go
package registry

// ActivityRegistry describes the task types this service can work on.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity is one Zeebe task type with its variable contract. InputSchema
// and OutputSchema are JSON Schema documents.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	Tags                 []string               `json:"tags,omitempty"`
}

// HasErrorCode reports whether code is declared for the activity.
func (a Activity) HasErrorCode(code string) bool {
	for _, c := range a.ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}
