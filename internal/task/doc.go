// Package task manages background job lifecycle and execution. It provides
// a registry-backed queue for long-running operations such as playbook
// linting, testing, and LLM generation, a bounded worker pool that runs
// submitted callables, and a periodic sweeper that reaps aged-out terminal
// tasks and expired cache entries. Callers receive control back immediately
// on submission and poll for results.
package task
