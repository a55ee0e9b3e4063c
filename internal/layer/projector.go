package layer

import "fmt"

// Project maps a binding plus a device-snapshot lookup into a renderable
// item. It is a pure function: no side effects, and the result is a
// fresh value every call so downstream identity-based change detection
// works per binding id.
//
// Kind-specific behaviour:
//
//   - metric: resolves the referenced device and reads the metric from
//     its values. Missing device or missing metric degrades to
//     PlaceholderValue. The device display name is resolved alongside
//     (falling back to the raw id).
//   - device: resolves the display name (falling back to the raw id)
//     and a status of online/offline. An absent device yields no status
//     at all — the render surface draws no dot.
//   - command: carries the device reference and command through
//     untouched; commands have no live value.
//   - text / icon: the value is the literal payload of the data source.
//
// Projection never fails. An unresolvable reference degrades to
// placeholder output so the canvas keeps rendering with partially stale
// configuration.
func Project(b Binding, lookup DeviceLookup) Item {
	item := Item{
		ID:        b.ID,
		Kind:      b.Kind,
		Position:  Resolve(b.Position),
		Label:     b.Name,
		Style:     StyleHints(deepCopyMap(b.Style)),
		Draggable: true,
	}

	switch b.Kind {
	case KindMetric:
		item.DeviceRef = b.DataSource.DeviceID
		item.MetricRef = b.DataSource.MetricID
		item.Value = PlaceholderValue
		if dev, ok := lookup(b.DataSource.DeviceID); ok {
			item.DeviceName = displayName(dev)
			if raw, present := dev.Values[b.DataSource.MetricID]; present {
				item.Value = coerceValue(raw)
			}
		} else {
			item.DeviceName = b.DataSource.DeviceID
		}

	case KindDevice:
		item.DeviceRef = b.DataSource.DeviceID
		if dev, ok := lookup(b.DataSource.DeviceID); ok {
			item.DeviceName = displayName(dev)
			if dev.Online {
				item.Status = StatusOnline
			} else {
				item.Status = StatusOffline
			}
		} else {
			item.DeviceName = b.DataSource.DeviceID
		}

	case KindCommand:
		item.DeviceRef = b.DataSource.DeviceID
		item.Command = b.DataSource.Command

	case KindText:
		item.Value = b.DataSource.Text

	case KindIcon:
		item.Value = b.DataSource.Icon
		item.Icon = b.DataSource.Icon
	}

	return item
}

// ProjectAll projects every binding against one lookup, preserving
// binding order.
func ProjectAll(bindings []Binding, lookup DeviceLookup) []Item {
	if len(bindings) == 0 {
		return nil
	}
	items := make([]Item, len(bindings))
	for i, b := range bindings {
		items[i] = Project(b, lookup)
	}
	return items
}

// displayName returns the device's name, falling back to its id when
// the snapshot carries no name.
func displayName(d DeviceState) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// coerceValue normalizes a raw telemetry value into a number-or-string
// for rendering. Numbers and strings pass through; anything else is
// formatted, so a stray bool or nested object still renders instead of
// breaking the canvas.
func coerceValue(raw any) any {
	switch v := raw.(type) {
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return v
	case string:
		return v
	case nil:
		return PlaceholderValue
	default:
		return fmt.Sprintf("%v", v)
	}
}
