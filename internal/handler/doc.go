// Package handler exposes a service.Server over HTTP.
//
// Routes follow the LionWeb repository protocol: repository management at
// the top level, chunk-based bulk operations under /bulk, single changes
// under /delta and read-only statistics under /inspection. The repository
// is named by the repository query parameter.
//
// # Bodies
//
// Chunk bodies are JSON by default. A Content-Type mentioning yaml selects
// YAML, and Content-Encoding: zstd marks a compressed body. Responses are
// JSON; operations that observe or change a repository report its version.
//
// Errors are returned as {error, details} with a status derived from the
// repository error kinds.
package handler
