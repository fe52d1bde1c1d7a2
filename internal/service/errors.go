// Package service implements playbook generation, linting, and testing on
// top of the task queue and cache layers.
package service

import "errors"

var (
	// ErrSchemaNotFound indicates no schema file exists for the module.
	ErrSchemaNotFound = errors.New("module schema not found")

	// ErrPlaybookNotFound indicates no playbook file exists for the ID.
	ErrPlaybookNotFound = errors.New("playbook not found")

	// ErrInvalidPlaybookID indicates the ID is not a UUID. IDs become file
	// names, so anything else is rejected before touching the filesystem.
	ErrInvalidPlaybookID = errors.New("invalid playbook ID")

	// ErrToolFailed indicates ansible-lint or molecule could not be run.
	ErrToolFailed = errors.New("tool execution failed")
)
