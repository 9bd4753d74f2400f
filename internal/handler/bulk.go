package handler

import (
	"fmt"
	"net/http"
	"strconv"

	gojson "github.com/goccy/go-json"

	"lionrepo/internal/repository"
)

// DefaultLionWebVersion is used when createRepository omits lionWebVersion.
const DefaultLionWebVersion = "2023.1"

// StatusResponse acknowledges a request that returns no data.
type StatusResponse struct {
	Success bool `json:"success"`
}

// RepositoriesResponse lists repository configurations.
type RepositoriesResponse struct {
	Repositories []repository.Configuration `json:"repositories"`
}

// ChunkResponse carries a serialization chunk and the version it was read at.
type ChunkResponse struct {
	Version string            `json:"version"`
	Chunk   gojson.RawMessage `json:"chunk"`
}

// MutationResponse reports the effect of a bulk write.
type MutationResponse struct {
	Success           bool     `json:"success"`
	Version           string   `json:"version"`
	CreatedPartitions []string `json:"createdPartitions,omitempty"`
	DeletedPartitions []string `json:"deletedPartitions,omitempty"`
	Deleted           []string `json:"deleted,omitempty"`
}

// IDsResponse lists freshly reserved ids.
type IDsResponse struct {
	IDs []string `json:"ids"`
}

// RetrieveRequest names the nodes to retrieve.
type RetrieveRequest struct {
	IDs []string `json:"ids"`
}

func mutationResponse(m *repository.Mutation) MutationResponse {
	return MutationResponse{
		Success:           true,
		Version:           m.Version.String(),
		CreatedPartitions: m.CreatedPartitions,
		DeletedPartitions: m.DeletedPartitions,
		Deleted:           m.Deleted,
	}
}

// CreateRepository creates an empty repository.
func (h *Handler) CreateRepository(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	q := r.URL.Query()
	cfg := repository.Configuration{Name: name, LionWebVersion: q.Get("lionWebVersion")}
	if cfg.LionWebVersion == "" {
		cfg.LionWebVersion = DefaultLionWebVersion
	}
	if raw := q.Get("history"); raw != "" {
		history, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(w, r, "Invalid request", fmt.Errorf("%w: history must be a boolean", repository.ErrInvalidArgument))
			return
		}
		cfg.History = repository.HistorySupport(history)
	}

	if err := h.svc.CreateRepository(r.Context(), cfg); err != nil {
		h.fail(w, r, "Failed to create repository", err)
		return
	}
	h.writeJSON(w, StatusResponse{Success: true}, http.StatusOK)
}

// DeleteRepository drops a repository.
func (h *Handler) DeleteRepository(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	if err := h.svc.DeleteRepository(r.Context(), name); err != nil {
		h.fail(w, r, "Failed to delete repository", err)
		return
	}
	h.writeJSON(w, StatusResponse{Success: true}, http.StatusOK)
}

// ListRepositories lists every repository configuration.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, RepositoriesResponse{Repositories: h.svc.ListRepositories(r.Context())}, http.StatusOK)
}

// ListPartitions returns the partition roots, without children, as a chunk.
func (h *Handler) ListPartitions(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	ids, _, err := h.svc.ListPartitions(r.Context(), name)
	if err != nil {
		h.fail(w, r, "Failed to list partitions", err)
		return
	}
	chunk, version, err := h.svc.Retrieve(r.Context(), name, ids, 0)
	if err != nil {
		h.fail(w, r, "Failed to list partitions", err)
		return
	}
	h.writeChunk(w, r, chunk, version)
}

// CreatePartitions registers the roots of the body chunk as partitions.
func (h *Handler) CreatePartitions(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	chunk, err := h.readChunk(w, r)
	if err != nil {
		h.fail(w, r, "Invalid chunk", err)
		return
	}
	m, err := h.svc.CreatePartitions(r.Context(), name, chunk.Nodes())
	if err != nil {
		h.fail(w, r, "Failed to create partitions", err)
		return
	}
	h.writeJSON(w, mutationResponse(m), http.StatusOK)
}

// DeletePartitions removes the partitions listed in the body, a JSON array
// of ids.
func (h *Handler) DeletePartitions(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	var ids []string
	if err := readJSON(w, r, &ids); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	m, err := h.svc.DeletePartitions(r.Context(), name, ids)
	if err != nil {
		h.fail(w, r, "Failed to delete partitions", err)
		return
	}
	h.writeJSON(w, mutationResponse(m), http.StatusOK)
}

// Store writes the body chunk.
func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	chunk, err := h.readChunk(w, r)
	if err != nil {
		h.fail(w, r, "Invalid chunk", err)
		return
	}
	m, err := h.svc.Store(r.Context(), name, chunk.Nodes())
	if err != nil {
		h.fail(w, r, "Failed to store", err)
		return
	}
	h.writeJSON(w, mutationResponse(m), http.StatusOK)
}

// Retrieve returns the subtrees under the requested ids. depthLimit
// defaults to unlimited.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	depth, err := intParam(r, "depthLimit", repository.Unlimited)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	var req RetrieveRequest
	if err := readJSON(w, r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	chunk, version, err := h.svc.Retrieve(r.Context(), name, req.IDs, depth)
	if err != nil {
		h.fail(w, r, "Failed to retrieve", err)
		return
	}
	h.writeChunk(w, r, chunk, version)
}

// IDs reserves fresh ids; count defaults to 1.
func (h *Handler) IDs(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	count, err := intParam(r, "count", 1)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	ids, err := h.svc.IDs(r.Context(), name, count)
	if err != nil {
		h.fail(w, r, "Failed to reserve ids", err)
		return
	}
	h.writeJSON(w, IDsResponse{IDs: ids}, http.StatusOK)
}
