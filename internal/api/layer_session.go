package api

import (
	"context"
	"errors"

	"github.com/ridgelinehome/ridgeline-core/internal/dashboard"
	"github.com/ridgelinehome/ridgeline-core/internal/device"
	"github.com/ridgelinehome/ridgeline-core/internal/layer"
)

// Layer session message types. A client opens a session against one
// dashboard layer and drives it with pointer, placement, and edit
// messages; the server answers each with a response and pushes
// layer.items events when the engine's debounced item state settles.
const (
	WSTypeLayerOpen             = "layer.open"
	WSTypeLayerClose            = "layer.close"
	WSTypeLayerEditMode         = "layer.edit_mode"
	WSTypeLayerPointer          = "layer.pointer"
	WSTypeLayerClick            = "layer.click"
	WSTypeLayerAddItem          = "layer.add_item"
	WSTypeLayerToggleVisibility = "layer.toggle_visibility"
	WSTypeLayerToggleLock       = "layer.toggle_lock"
	WSTypeLayerSetPosition      = "layer.set_position"
	WSTypeLayerSelectBinding    = "layer.select_binding"
	WSTypeLayerPlace            = "layer.place"
	WSTypeLayerExecute          = "layer.execute"

	// EventLayerItems carries the debounced item list to the session
	// owner after item-owned mutations.
	EventLayerItems = "layer.items"
)

// Pointer actions within a layer.pointer message.
const (
	pointerActionDown = "down"
	pointerActionMove = "move"
	pointerActionUp   = "up"
)

// layerSession binds one WebSocket client to one dashboard layer.
//
// The session owns a reconciliation engine fed by registry snapshot
// pushes and an editor for the binding surface. Item mutations persist
// through the engine's debounced callback; binding rewrites persist
// synchronously and notify dashboard subscribers.
type layerSession struct {
	srv         *Server
	client      *WSClient
	dashboardID string
	layerID     string

	engine  *layer.Engine
	editor  *layer.Editor
	watchID uint64
}

// openLayerSession loads the layer from the dashboard store, builds an
// engine/editor pair seeded with its persisted state, and subscribes
// the session to registry snapshot pushes.
func (s *Server) openLayerSession(c *WSClient, dashboardID, layerID string, editMode bool) (*layerSession, error) {
	lay, err := s.store.GetLayer(context.Background(), dashboardID, layerID)
	if err != nil {
		return nil, err
	}

	sess := &layerSession{
		srv:         s,
		client:      c,
		dashboardID: dashboardID,
		layerID:     layerID,
	}

	eng := layer.New(layer.Options{
		DebounceWindow: s.layerCfg.DebounceWindow(),
		Logger:         s.logger.With("component", "layer_session", "dashboard_id", dashboardID, "layer_id", layerID),
	})
	sess.engine = eng
	sess.editor = layer.NewEditor(eng)

	if s.commander != nil {
		eng.SetCommander(s.commander)
	}

	// Seed persisted state before wiring callbacks so the session never
	// hears an echo of the stored lists it just loaded.
	eng.SetItems(lay.Items)
	eng.SetBindings(lay.Bindings)

	eng.SetOnItemsChange(sess.persistItems)
	eng.SetOnBindingsChange(sess.persistBindings)
	eng.SetOnLayerClick(sess.placeArmed)

	var snapshots <-chan []device.Snapshot
	sess.watchID, snapshots = s.registry.Watch()
	go sess.watchLoop(snapshots)

	eng.SetEditMode(editMode)
	return sess, nil
}

// close tears the session down: the engine detaches its callbacks and
// the registry watch is released, which ends the watch loop.
func (sess *layerSession) close() {
	sess.engine.Close()
	sess.srv.registry.Unwatch(sess.watchID)
}

// watchLoop feeds registry snapshot pushes into the engine until the
// watch channel closes. The engine decides internally whether each push
// warrants a re-projection.
func (sess *layerSession) watchLoop(snapshots <-chan []device.Snapshot) {
	for snaps := range snapshots {
		sess.engine.SetDevices(toDeviceStates(snaps))
	}
}

// toDeviceStates converts registry snapshots into the engine's device
// snapshot form.
func toDeviceStates(snaps []device.Snapshot) []layer.DeviceState {
	out := make([]layer.DeviceState, len(snaps))
	for i, sn := range snaps {
		out[i] = layer.DeviceState{
			ID:     sn.ID,
			Name:   sn.Name,
			Online: sn.Online,
			Values: sn.Values,
		}
	}
	return out
}

// persistItems is the engine's debounced item callback: one write into
// the dashboard store, one layer.items event back to the owning client.
func (sess *layerSession) persistItems(items []layer.Item) {
	if err := sess.srv.store.SaveLayerItems(context.Background(), sess.dashboardID, sess.layerID, items); err != nil {
		sess.srv.logger.Error("layer item persistence failed",
			"dashboard_id", sess.dashboardID,
			"layer_id", sess.layerID,
			"error", err,
		)
	}

	sess.client.sendEvent(EventLayerItems, map[string]any{
		"dashboard_id": sess.dashboardID,
		"layer_id":     sess.layerID,
		"items":        items,
	})
}

// persistBindings is the engine's synchronous binding callback, fired
// when a commit rewrites a binding position. Other subscribers learn of
// the change through the dashboard.updated broadcast.
func (sess *layerSession) persistBindings(bindings []layer.Binding) {
	if err := sess.srv.store.SaveLayerBindings(context.Background(), sess.dashboardID, sess.layerID, bindings); err != nil {
		sess.srv.logger.Error("layer binding persistence failed",
			"dashboard_id", sess.dashboardID,
			"layer_id", sess.layerID,
			"error", err,
		)
		return
	}

	if sess.srv.hub != nil {
		sess.srv.hub.Broadcast(EventDashboardUpdated, map[string]any{
			"dashboard_id": sess.dashboardID,
			"layer_id":     sess.layerID,
		})
	}
}

// placeArmed is the engine's raw canvas-click callback: when the editor
// has a binding armed, a click places it at the click position.
func (sess *layerSession) placeArmed(x, y float64) {
	if sess.editor.Selected() == "" {
		return
	}
	sess.editor.PlaceAt(x, y)
}

// ─── Client-side session plumbing ──────────────────────────────────

// setSession swaps the client's active layer session, closing any
// previous one.
func (c *WSClient) setSession(sess *layerSession) {
	c.sessionMu.Lock()
	prev := c.session
	c.session = sess
	c.sessionMu.Unlock()

	if prev != nil {
		prev.close()
	}
}

// currentSession returns the client's active layer session, if any.
func (c *WSClient) currentSession() *layerSession {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.session
}

// closeSession tears down the active layer session, if any. Called on
// layer.close and when the connection drops.
func (c *WSClient) closeSession() {
	c.setSession(nil)
}

// ─── Message payloads ──────────────────────────────────────────────

type layerOpenPayload struct {
	DashboardID string `json:"dashboard_id"`
	LayerID     string `json:"layer_id"`
	EditMode    bool   `json:"edit_mode"`
}

type layerEditModePayload struct {
	Enabled bool `json:"enabled"`
}

type layerPointerPayload struct {
	Action string  `json:"action"`
	ItemID string  `json:"item_id,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type layerClickPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type layerItemRefPayload struct {
	ItemID string `json:"item_id"`
}

type layerSetPositionPayload struct {
	ItemID string   `json:"item_id"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Preset string   `json:"preset,omitempty"`
}

type layerSelectBindingPayload struct {
	BindingID string `json:"binding_id"`
}

type layerPlacePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ─── Message handling ──────────────────────────────────────────────

// handleLayerMessage routes layer.* session messages. layer.open works
// without a session; everything else requires one.
func (c *WSClient) handleLayerMessage(msg WSMessage) {
	if c.srv == nil {
		c.sendError(msg.ID, "layer sessions unavailable")
		return
	}

	if msg.Type == WSTypeLayerOpen {
		c.handleLayerOpen(msg)
		return
	}

	sess := c.currentSession()
	if sess == nil {
		c.sendError(msg.ID, "no layer session open")
		return
	}

	switch msg.Type {
	case WSTypeLayerClose:
		c.closeSession()
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"closed": true})
	case WSTypeLayerEditMode:
		sess.handleEditMode(c, msg)
	case WSTypeLayerPointer:
		sess.handlePointer(c, msg)
	case WSTypeLayerClick:
		sess.handleClick(c, msg)
	case WSTypeLayerAddItem:
		sess.handleAddItem(c, msg)
	case WSTypeLayerToggleVisibility:
		sess.handleToggleVisibility(c, msg)
	case WSTypeLayerToggleLock:
		sess.handleToggleLock(c, msg)
	case WSTypeLayerSetPosition:
		sess.handleSetPosition(c, msg)
	case WSTypeLayerSelectBinding:
		sess.handleSelectBinding(c, msg)
	case WSTypeLayerPlace:
		sess.handlePlace(c, msg)
	case WSTypeLayerExecute:
		sess.handleExecute(c, msg)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleLayerOpen creates a session for the requested dashboard layer
// and answers with its full initial state.
func (c *WSClient) handleLayerOpen(msg WSMessage) {
	var p layerOpenPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.open payload")
		return
	}
	if p.DashboardID == "" || p.LayerID == "" {
		c.sendError(msg.ID, "dashboard_id and layer_id are required")
		return
	}

	sess, err := c.srv.openLayerSession(c, p.DashboardID, p.LayerID, p.EditMode)
	if err != nil {
		if errors.Is(err, dashboard.ErrDashboardNotFound) || errors.Is(err, dashboard.ErrLayerNotFound) {
			c.sendError(msg.ID, "dashboard layer not found")
			return
		}
		c.srv.logger.Error("layer session open failed",
			"dashboard_id", p.DashboardID,
			"layer_id", p.LayerID,
			"error", err,
		)
		c.sendError(msg.ID, "failed to open layer session")
		return
	}
	c.setSession(sess)

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{
		"dashboard_id": sess.dashboardID,
		"layer_id":     sess.layerID,
		"mode":         sess.engine.Mode(),
		"edit_mode":    sess.engine.EditMode(),
		"items":        sess.engine.Items(),
		"bindings":     sess.engine.Bindings(),
	})
}

func (sess *layerSession) handleEditMode(c *WSClient, msg WSMessage) {
	var p layerEditModePayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.edit_mode payload")
		return
	}

	sess.engine.SetEditMode(p.Enabled)
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"edit_mode": p.Enabled})
}

// handlePointer drives the engine's drag pipeline. Down starts a drag
// on an item, move returns an uncommitted preview position, and up
// commits the final position through the engine's shared commit path.
func (sess *layerSession) handlePointer(c *WSClient, msg WSMessage) {
	var p layerPointerPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.pointer payload")
		return
	}

	switch p.Action {
	case pointerActionDown:
		ok := sess.engine.PointerDown(p.ItemID, p.X, p.Y, p.Width, p.Height)
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"dragging": ok})
	case pointerActionMove:
		pos, ok := sess.engine.PointerMove(p.X, p.Y)
		resp := map[string]any{"dragging": ok}
		if ok {
			resp["position"] = pos
		}
		c.sendResponse(msg.ID, WSTypeResponse, resp)
	case pointerActionUp:
		pos, ok := sess.engine.PointerUp()
		resp := map[string]any{"committed": ok}
		if ok {
			resp["position"] = pos
		}
		c.sendResponse(msg.ID, WSTypeResponse, resp)
	default:
		c.sendError(msg.ID, "unknown pointer action: "+p.Action)
	}
}

// handleClick converts a canvas click into normalized coordinates. When
// the editor has a binding armed, the engine's click callback places it
// at the click position.
func (sess *layerSession) handleClick(c *WSClient, msg WSMessage) {
	var p layerClickPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.click payload")
		return
	}

	pos, ok := sess.engine.Click(p.X, p.Y, p.Width, p.Height)
	if !ok {
		c.sendError(msg.ID, "invalid click container dimensions")
		return
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"position": pos})
}

func (sess *layerSession) handleAddItem(c *WSClient, msg WSMessage) {
	var defaults layer.Item
	if err := decodePayload(msg.Payload, &defaults); err != nil {
		c.sendError(msg.ID, "invalid layer.add_item payload")
		return
	}

	it, ok := sess.engine.AddItem(defaults)
	if !ok {
		c.sendError(msg.ID, "items cannot be added while the layer is binding-driven")
		return
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"item": it})
}

func (sess *layerSession) handleToggleVisibility(c *WSClient, msg WSMessage) {
	var p layerItemRefPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.toggle_visibility payload")
		return
	}

	if !sess.engine.ToggleVisibility(p.ItemID) {
		c.sendError(msg.ID, "item not found or not editable: "+p.ItemID)
		return
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"item_id": p.ItemID})
}

func (sess *layerSession) handleToggleLock(c *WSClient, msg WSMessage) {
	var p layerItemRefPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.toggle_lock payload")
		return
	}

	if !sess.engine.ToggleLock(p.ItemID) {
		c.sendError(msg.ID, "item not found or not editable: "+p.ItemID)
		return
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"item_id": p.ItemID})
}

// handleSetPosition commits a position for an item or binding. The
// payload carries either explicit coordinates or a preset name.
func (sess *layerSession) handleSetPosition(c *WSClient, msg WSMessage) {
	var p layerSetPositionPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.set_position payload")
		return
	}

	pos, err := resolvePositionInput(p.X, p.Y, p.Preset)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}

	if !sess.engine.SetPosition(p.ItemID, pos) {
		c.sendError(msg.ID, "unknown item or binding: "+p.ItemID)
		return
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{
		"item_id":  p.ItemID,
		"position": pos.Clamp(),
	})
}

func (sess *layerSession) handleSelectBinding(c *WSClient, msg WSMessage) {
	var p layerSelectBindingPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.select_binding payload")
		return
	}

	if !sess.editor.Select(p.BindingID) {
		c.sendError(msg.ID, "unknown binding: "+p.BindingID)
		return
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"selected": sess.editor.Selected()})
}

func (sess *layerSession) handlePlace(c *WSClient, msg WSMessage) {
	var p layerPlacePayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.place payload")
		return
	}

	if !sess.editor.PlaceAt(p.X, p.Y) {
		c.sendError(msg.ID, "no binding armed for placement")
		return
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"placed": true})
}

// handleExecute dispatches a command-kind item's action. Dispatch
// failures are logged by the engine and never surfaced to the canvas,
// so the response only acknowledges the attempt.
func (sess *layerSession) handleExecute(c *WSClient, msg WSMessage) {
	var p layerItemRefPayload
	if err := decodePayload(msg.Payload, &p); err != nil {
		c.sendError(msg.ID, "invalid layer.execute payload")
		return
	}

	sess.engine.ExecuteCommand(context.Background(), p.ItemID)
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"item_id": p.ItemID})
}

// resolvePositionInput turns a coordinate pair or preset name into a
// concrete position. Exactly one form must be supplied.
func resolvePositionInput(x, y *float64, preset string) (layer.Position, error) {
	if preset != "" {
		if x != nil || y != nil {
			return layer.Position{}, errors.New("supply either coordinates or a preset, not both")
		}
		pos, ok := layer.PresetPosition(layer.Preset(preset))
		if !ok {
			return layer.Position{}, errors.New("unknown position preset: " + preset)
		}
		return pos, nil
	}
	if x == nil || y == nil {
		return layer.Position{}, errors.New("position requires x and y coordinates or a preset")
	}
	return layer.Position{X: *x, Y: *y}, nil
}
