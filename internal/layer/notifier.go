package layer

import "time"

// fingerprint is the cheap identity of one item for upstream change
// detection: id plus committed coordinates. Two lists with equal
// fingerprint sequences are considered materially identical — content
// edits that move nothing do not wake the owner.
type fingerprint struct {
	id string
	x  float64
	y  float64
}

func fingerprintItems(items []Item) []fingerprint {
	if len(items) == 0 {
		return nil
	}
	fps := make([]fingerprint, len(items))
	for i, it := range items {
		fps[i] = fingerprint{id: it.ID, x: it.Position.X, y: it.Position.Y}
	}
	return fps
}

func fingerprintsEqual(a, b []fingerprint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// notifier schedules the debounced upstream item notification: reset on
// activity, fire on quiescence, always deliver the latest list.
//
// A burst of mutations (a drag commit followed by nudges, ten rapid
// preset clicks) collapses into a single callback carrying the final
// state. Mutations whose fingerprints match the last notified list
// schedule nothing at all.
//
// The notifier's fields are guarded by the engine mutex; only the
// timer's fire callback runs outside it, and that callback immediately
// re-enters the engine before touching any state.
type notifier struct {
	window time.Duration
	fire   func()

	timer        *time.Timer
	lastNotified []fingerprint
}

func newNotifier(window time.Duration, fire func()) *notifier {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &notifier{window: window, fire: fire}
}

// note records an owned-list mutation. If the list materially differs
// from the last notified state, the quiescence timer is (re)started.
func (n *notifier) note(items []Item) {
	if fingerprintsEqual(fingerprintItems(items), n.lastNotified) {
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.window, n.fire)
}

// changedSinceNotified reports whether the list differs from the last
// notified state. Checked again at fire time so a burst that ends back
// where it started delivers nothing.
func (n *notifier) changedSinceNotified(items []Item) bool {
	return !fingerprintsEqual(fingerprintItems(items), n.lastNotified)
}

// recordNotified marks the given list as delivered.
func (n *notifier) recordNotified(items []Item) {
	n.lastNotified = fingerprintItems(items)
}

// rebase cancels any pending notification and adopts the list as the
// new baseline without delivering it. Used when the owner itself
// supplies the item list — echoing its own write back would loop.
func (n *notifier) rebase(items []Item) {
	n.cancel()
	n.lastNotified = fingerprintItems(items)
}

// cancel stops a pending notification, if any.
func (n *notifier) cancel() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
