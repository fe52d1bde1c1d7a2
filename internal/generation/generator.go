// Package generation defines the interface for LLM-backed playbook
// generation. Implementations live under internal/platform; collaborators
// depend only on this package.
package generation

import "context"

// PlaybookRequest describes the playbook a caller wants generated.
type PlaybookRequest struct {
	// Module is the fully qualified Ansible module name, e.g.
	// "ansible.builtin.copy".
	Module string `json:"module"`

	// Text is the natural-language description of the task.
	Text string `json:"text"`
}

// Generator produces Ansible playbook YAML from a request.
type Generator interface {
	// GeneratePlaybook returns validated playbook YAML for the request.
	GeneratePlaybook(ctx context.Context, req PlaybookRequest) (string, error)
}
