package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ridgelinehome/ridgeline-core/internal/dashboard"
	"github.com/ridgelinehome/ridgeline-core/internal/layer"
)

// handleListDashboards returns all dashboards.
func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards, err := s.store.ListDashboards(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list dashboards")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dashboards": dashboards, "count": len(dashboards)})
}

// handleGetDashboard returns a single dashboard by ID.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := s.store.GetDashboard(r.Context(), id)
	if err != nil {
		if errors.Is(err, dashboard.ErrDashboardNotFound) {
			writeNotFound(w, "dashboard not found")
			return
		}
		writeInternalError(w, "failed to get dashboard")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleGetDefaultDashboard returns the dashboard panels boot into.
func (s *Server) handleGetDefaultDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDefault(r.Context())
	if err != nil {
		if errors.Is(err, dashboard.ErrDashboardNotFound) {
			writeNotFound(w, "no dashboards configured")
			return
		}
		writeInternalError(w, "failed to get default dashboard")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleCreateDashboard creates a new dashboard.
func (s *Server) handleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var d dashboard.Dashboard
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.CreateDashboard(r.Context(), &d); err != nil {
		switch {
		case errors.Is(err, dashboard.ErrDashboardExists):
			writeConflict(w, "dashboard already exists")
		case errors.Is(err, dashboard.ErrInvalidName), errors.Is(err, dashboard.ErrInvalidDashboard):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to create dashboard")
		}
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// createFromTemplateRequest is the request body for POST /dashboards/from-template.
type createFromTemplateRequest struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
}

// handleCreateFromTemplate instantiates a built-in template as a new dashboard.
func (s *Server) handleCreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req createFromTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.TemplateID == "" {
		writeBadRequest(w, "template_id field is required")
		return
	}

	d, err := s.store.CreateFromTemplate(r.Context(), req.TemplateID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, dashboard.ErrTemplateNotFound):
			writeNotFound(w, "template not found")
		case errors.Is(err, dashboard.ErrInvalidName), errors.Is(err, dashboard.ErrInvalidDashboard):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to create dashboard from template")
		}
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// handleListTemplates returns the built-in dashboard templates.
func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := dashboard.Templates()
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates, "count": len(templates)})
}

// handleUpdateDashboard partially updates a dashboard.
func (s *Server) handleUpdateDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.store.GetDashboard(r.Context(), id)
	if err != nil {
		if errors.Is(err, dashboard.ErrDashboardNotFound) {
			writeNotFound(w, "dashboard not found")
			return
		}
		writeInternalError(w, "failed to get dashboard")
		return
	}

	// Decode partial update onto existing dashboard
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.store.UpdateDashboard(r.Context(), existing); err != nil {
		switch {
		case errors.Is(err, dashboard.ErrInvalidName), errors.Is(err, dashboard.ErrInvalidDashboard):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to update dashboard")
		}
		return
	}

	s.broadcastDashboardUpdated(id, "")
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDashboard removes a dashboard by ID.
func (s *Server) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteDashboard(r.Context(), id); err != nil {
		if errors.Is(err, dashboard.ErrDashboardNotFound) {
			writeNotFound(w, "dashboard not found")
			return
		}
		writeInternalError(w, "failed to delete dashboard")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSetDefaultDashboard marks a dashboard as the panel boot default.
func (s *Server) handleSetDefaultDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.SetDefault(r.Context(), id); err != nil {
		if errors.Is(err, dashboard.ErrDashboardNotFound) {
			writeNotFound(w, "dashboard not found")
			return
		}
		writeInternalError(w, "failed to set default dashboard")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ─── Layer binding editor endpoints ────────────────────────────────

// handleListBindings returns a layer's binding set.
func (s *Server) handleListBindings(w http.ResponseWriter, r *http.Request) {
	dashboardID := chi.URLParam(r, "id")
	layerID := chi.URLParam(r, "layerID")

	lay, err := s.store.GetLayer(r.Context(), dashboardID, layerID)
	if err != nil {
		s.writeLayerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bindings": lay.Bindings, "count": len(lay.Bindings)})
}

// handleCreateBinding adds a binding to a layer.
func (s *Server) handleCreateBinding(w http.ResponseWriter, r *http.Request) {
	dashboardID := chi.URLParam(r, "id")
	layerID := chi.URLParam(r, "layerID")

	var b layer.Binding
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var created layer.Binding
	_, err := s.editLayerBindings(r.Context(), dashboardID, layerID, func(ed *layer.Editor) error {
		var addErr error
		created, addErr = ed.Add(b)
		return addErr
	})
	if err != nil {
		if errors.Is(err, layer.ErrInvalidKind) {
			writeBadRequest(w, err.Error())
			return
		}
		s.writeLayerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateBinding replaces a binding's definition.
func (s *Server) handleUpdateBinding(w http.ResponseWriter, r *http.Request) {
	dashboardID := chi.URLParam(r, "id")
	layerID := chi.URLParam(r, "layerID")
	bindingID := chi.URLParam(r, "bindingID")

	lay, err := s.store.GetLayer(r.Context(), dashboardID, layerID)
	if err != nil {
		s.writeLayerError(w, err)
		return
	}

	existing, ok := findBinding(lay.Bindings, bindingID)
	if !ok {
		writeNotFound(w, "binding not found")
		return
	}

	// Decode partial update onto the existing binding
	if err := json.NewDecoder(r.Body).Decode(&existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = bindingID

	_, err = s.editLayerBindings(r.Context(), dashboardID, layerID, func(ed *layer.Editor) error {
		updated, updateErr := ed.Update(existing)
		if updateErr != nil {
			return updateErr
		}
		if !updated {
			return errBindingNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, layer.ErrInvalidKind) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, errBindingNotFound) {
			writeNotFound(w, "binding not found")
			return
		}
		s.writeLayerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteBinding removes a binding from a layer.
func (s *Server) handleDeleteBinding(w http.ResponseWriter, r *http.Request) {
	dashboardID := chi.URLParam(r, "id")
	layerID := chi.URLParam(r, "layerID")
	bindingID := chi.URLParam(r, "bindingID")

	_, err := s.editLayerBindings(r.Context(), dashboardID, layerID, func(ed *layer.Editor) error {
		if !ed.Remove(bindingID) {
			return errBindingNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errBindingNotFound) {
			writeNotFound(w, "binding not found")
			return
		}
		s.writeLayerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bindingPositionRequest is the request body for PUT .../bindings/{bindingID}/position.
// Either explicit coordinates or a compass preset must be supplied.
type bindingPositionRequest struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Preset string   `json:"preset,omitempty"`
}

// handleSetBindingPosition writes a binding's position through the
// editor commit path: coordinates are clamped to the commit bounds and
// the rewritten binding list is persisted.
func (s *Server) handleSetBindingPosition(w http.ResponseWriter, r *http.Request) {
	dashboardID := chi.URLParam(r, "id")
	layerID := chi.URLParam(r, "layerID")
	bindingID := chi.URLParam(r, "bindingID")

	var req bindingPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	bindings, err := s.editLayerBindings(r.Context(), dashboardID, layerID, func(ed *layer.Editor) error {
		if req.Preset != "" {
			if req.X != nil || req.Y != nil {
				return errBothPositionForms
			}
			if _, ok := layer.PresetPosition(layer.Preset(req.Preset)); !ok {
				return errUnknownPreset
			}
			if !ed.ApplyPreset(bindingID, layer.Preset(req.Preset)) {
				return errBindingNotFound
			}
			return nil
		}
		if req.X == nil || req.Y == nil {
			return errMissingCoordinates
		}
		if !ed.Select(bindingID) {
			return errBindingNotFound
		}
		if !ed.PlaceAt(*req.X, *req.Y) {
			return errBindingNotFound
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errBindingNotFound):
			writeNotFound(w, "binding not found")
		case errors.Is(err, errBothPositionForms),
			errors.Is(err, errUnknownPreset),
			errors.Is(err, errMissingCoordinates):
			writeBadRequest(w, err.Error())
		default:
			s.writeLayerError(w, err)
		}
		return
	}

	updated, _ := findBinding(bindings, bindingID)
	writeJSON(w, http.StatusOK, updated)
}

// Position request validation errors.
var (
	errBindingNotFound    = errors.New("binding not found")
	errBothPositionForms  = errors.New("supply either coordinates or a preset, not both")
	errUnknownPreset      = errors.New("unknown position preset")
	errMissingCoordinates = errors.New("position requires x and y coordinates or a preset")
)

// editLayerBindings runs fn against an ephemeral engine/editor pair
// seeded from the stored layer, then persists the resulting binding
// list and notifies dashboard subscribers. The REST editor shares the
// commit semantics of a live layer session (id generation, kind
// validation, position clamping) without holding an engine open between
// requests.
func (s *Server) editLayerBindings(ctx context.Context, dashboardID, layerID string, fn func(ed *layer.Editor) error) ([]layer.Binding, error) {
	lay, err := s.store.GetLayer(ctx, dashboardID, layerID)
	if err != nil {
		return nil, err
	}

	eng := layer.New(layer.Options{})
	defer eng.Close()
	eng.SetItems(lay.Items)
	eng.SetBindings(lay.Bindings)
	ed := layer.NewEditor(eng)

	if err := fn(ed); err != nil {
		return nil, err
	}

	bindings := eng.Bindings()
	if err := s.store.SaveLayerBindings(ctx, dashboardID, layerID, bindings); err != nil {
		return nil, err
	}

	s.broadcastDashboardUpdated(dashboardID, layerID)
	return bindings, nil
}

// broadcastDashboardUpdated notifies WebSocket subscribers that a
// dashboard's persisted configuration changed.
func (s *Server) broadcastDashboardUpdated(dashboardID, layerID string) {
	if s.hub == nil {
		return
	}
	payload := map[string]any{"dashboard_id": dashboardID}
	if layerID != "" {
		payload["layer_id"] = layerID
	}
	s.hub.Broadcast(EventDashboardUpdated, payload)
}

// writeLayerError maps dashboard store errors for layer lookups.
func (s *Server) writeLayerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dashboard.ErrDashboardNotFound):
		writeNotFound(w, "dashboard not found")
	case errors.Is(err, dashboard.ErrLayerNotFound):
		writeNotFound(w, "layer not found")
	default:
		writeInternalError(w, "dashboard store error")
	}
}

// findBinding scans a binding list by id.
func findBinding(bindings []layer.Binding, id string) (layer.Binding, bool) {
	for _, b := range bindings {
		if b.ID == id {
			return b, true
		}
	}
	return layer.Binding{}, false
}
