package handler

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"

	"lionrepo/internal/repository"
	"lionrepo/internal/validator"
)

// ClassifierGroup is one row of nodesByClassifier.
type ClassifierGroup struct {
	Language   string   `json:"language"`
	Classifier string   `json:"classifier"`
	IDs        []string `json:"ids"`
	Size       int      `json:"size"`
}

// LanguageGroup is one row of nodesByLanguage.
type LanguageGroup struct {
	Language string   `json:"language"`
	IDs      []string `json:"ids"`
	Size     int      `json:"size"`
}

// ConsistencyResponse reports the issues found in a repository graph.
type ConsistencyResponse struct {
	Successful bool              `json:"successful"`
	Issues     []validator.Issue `json:"issues"`
}

// MetaPointerBody is a meta-pointer in a JSON request.
type MetaPointerBody struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Key      string `json:"key"`
}

// ChangePropertyRequest sets one property. A null value clears it.
type ChangePropertyRequest struct {
	Node     string          `json:"node"`
	Property MetaPointerBody `json:"property"`
	Value    *string         `json:"value"`
}

// ChangePropertyResponse reports the previous value and the new version.
type ChangePropertyResponse struct {
	Version  string  `json:"version"`
	OldValue *string `json:"oldValue"`
	NewValue *string `json:"newValue"`
}

// ChangeProperty applies a single property change.
func (h *Handler) ChangeProperty(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	var req ChangePropertyRequest
	if err := readJSON(w, r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	if req.Node == "" || req.Property.Key == "" {
		h.fail(w, r, "Invalid request body", fmt.Errorf("%w: node and property.key are required", repository.ErrInvalidArgument))
		return
	}
	mp := h.interner.MetaPointer(&req.Property.Language, &req.Property.Version, &req.Property.Key)

	change, err := h.svc.ChangeProperty(r.Context(), name, req.Node, mp, req.Value)
	if err != nil {
		h.fail(w, r, "Failed to change property", err)
		return
	}
	h.writeJSON(w, ChangePropertyResponse{
		Version:  change.Version.String(),
		OldValue: change.OldValue,
		NewValue: change.NewValue,
	}, http.StatusOK)
}

// NodesByClassifier lists node groups per classifier. limit caps the ids of
// each group and defaults to unlimited.
func (h *Handler) NodesByClassifier(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	limit, err := intParam(r, "limit", repository.NoLimit)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	groups, err := h.svc.NodesByClassifier(r.Context(), name, limit)
	if err != nil {
		h.fail(w, r, "Failed to inspect repository", err)
		return
	}
	out := make([]ClassifierGroup, 0, len(groups))
	for key, g := range groups {
		out = append(out, ClassifierGroup{Language: key.Language, Classifier: key.Classifier, IDs: g.IDs, Size: g.Size})
	}
	slices.SortFunc(out, func(a, b ClassifierGroup) int {
		return cmp.Or(cmp.Compare(a.Language, b.Language), cmp.Compare(a.Classifier, b.Classifier))
	})
	h.writeJSON(w, out, http.StatusOK)
}

// NodesByLanguage lists node groups per language key.
func (h *Handler) NodesByLanguage(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	limit, err := intParam(r, "limit", repository.NoLimit)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	groups, err := h.svc.NodesByLanguage(r.Context(), name, limit)
	if err != nil {
		h.fail(w, r, "Failed to inspect repository", err)
		return
	}
	out := make([]LanguageGroup, 0, len(groups))
	for language, g := range groups {
		out = append(out, LanguageGroup{Language: language, IDs: g.IDs, Size: g.Size})
	}
	slices.SortFunc(out, func(a, b LanguageGroup) int { return cmp.Compare(a.Language, b.Language) })
	h.writeJSON(w, out, http.StatusOK)
}

// Consistency validates the whole repository graph.
func (h *Handler) Consistency(w http.ResponseWriter, r *http.Request) {
	name, err := repositoryName(r)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	result, err := h.svc.CheckConsistency(r.Context(), name)
	if err != nil {
		h.fail(w, r, "Failed to check consistency", err)
		return
	}
	h.writeJSON(w, ConsistencyResponse{Successful: result.IsSuccessful(), Issues: result.Issues()}, http.StatusOK)
}
