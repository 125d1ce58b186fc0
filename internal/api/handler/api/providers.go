package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/newthinker/nurexia/internal/api/response"
	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
)

// ProvidersApp defines the interface needed from app.App.
type ProvidersApp interface {
	Providers() map[string]llm.Capabilities
	TestConnection(ctx context.Context, name, model string) (bool, string)
}

// ConnectionResult is the data of a provider connection test.
type ConnectionResult struct {
	Provider string `json:"provider"`
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
}

// ProvidersHandler serves provider capabilities and connection tests.
type ProvidersHandler struct {
	app ProvidersApp
}

// NewProvidersHandler creates a new providers handler.
func NewProvidersHandler(app ProvidersApp) *ProvidersHandler {
	return &ProvidersHandler{app: app}
}

// List returns every provider's capabilities, sorted by name.
func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	caps := h.app.Providers()
	list := make([]llm.Capabilities, 0, len(caps))
	for _, c := range caps {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	response.JSON(w, http.StatusOK, list)
}

// Test checks one provider's credentials and reachability. The optional
// model query parameter selects the model to test against.
func (h *ProvidersHandler) Test(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := h.app.Providers()[name]; !ok {
		response.Error(w, http.StatusNotFound,
			core.NewError(core.ErrUnknownProvider, fmt.Sprintf("unknown provider %q", name), nil))
		return
	}

	ok, msg := h.app.TestConnection(r.Context(), name, r.URL.Query().Get("model"))
	response.JSON(w, http.StatusOK, ConnectionResult{Provider: name, OK: ok, Message: msg})
}
