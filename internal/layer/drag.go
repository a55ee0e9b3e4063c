package layer

// dragSession is the pointer-drag state machine: idle → dragging → idle.
// Only one session exists per engine since only one pointer is active on
// a surface at a time; the engine serializes all transitions.
//
// The session records the pointer's offset from the item's pixel
// position at drag start, so the item tracks the grab point instead of
// snapping its origin to the pointer. Moves produce clamped,
// non-committing previews; release commits the last preview. There is no
// cancel path — drag is "live preview, commit on release", not
// "commit-or-revert".
type dragSession struct {
	active bool
	itemID string

	offsetX float64
	offsetY float64

	containerWidth  float64
	containerHeight float64

	preview    Position
	hasPreview bool
}

// begin starts a session for the given item. The item's current
// normalized position is converted to pixels to compute the grab
// offset. Returns false for a degenerate container.
func (d *dragSession) begin(itemID string, pointerX, pointerY float64, itemPos Position, width, height float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}

	itemPX, itemPY := itemPos.ToPixels(width, height)

	*d = dragSession{
		active:          true,
		itemID:          itemID,
		offsetX:         pointerX - itemPX,
		offsetY:         pointerY - itemPY,
		containerWidth:  width,
		containerHeight: height,
	}
	return true
}

// move recomputes the preview position from the current pointer pixel
// coordinates: (pointer − recorded offset) ÷ container × 100, clamped
// per axis. Returns false when no session is active.
func (d *dragSession) move(pointerX, pointerY float64) (Position, bool) {
	if !d.active {
		return Position{}, false
	}

	pos := FromPixels(
		pointerX-d.offsetX,
		pointerY-d.offsetY,
		d.containerWidth,
		d.containerHeight,
	).Clamp()

	d.preview = pos
	d.hasPreview = true
	return pos, true
}

// end closes the session and returns the item id and last preview
// position. ok is false when no session was active or the pointer never
// moved (nothing to commit). The session always returns to idle.
func (d *dragSession) end() (itemID string, pos Position, ok bool) {
	itemID = d.itemID
	pos = d.preview
	ok = d.active && d.hasPreview

	*d = dragSession{}
	return itemID, pos, ok
}

// reset abandons any active session without committing.
// Used when edit mode is switched off or the engine closes mid-drag.
func (d *dragSession) reset() {
	*d = dragSession{}
}
