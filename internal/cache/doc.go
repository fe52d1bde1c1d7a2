// Package cache provides in-memory TTL caches for expensive lookups such as
// module schemas, LLM responses, and generated playbooks. Entries expire
// lazily on read and proactively during periodic sweeps.
package cache
