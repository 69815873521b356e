package reorder

type Phase int

const (
	Idle Phase = iota
	Dragging
	Hovering
	Dropped
	Cancelled
)

var PhaseTextMap = map[Phase]string{
	Idle:      "idle",
	Dragging:  "dragging",
	Hovering:  "hovering",
	Dropped:   "dropped",
	Cancelled: "cancelled",
}

func (p Phase) String() string { return PhaseTextMap[p] }

// Drop is the outcome of a finished gesture. IDs holds the complete new order and is only
// set when Moved is true.
type Drop struct {
	Moved bool
	From  int
	To    int
	IDs   []string
	Phase Phase
}

// Drag tracks one drag gesture over a list of n identifiers.
type Drag struct {
	ids    []string
	phase  Phase
	source int
	target int
	locked func(index int) bool
}

// NewDrag starts in Idle over ids. locked, if set, marks items that must not be picked up.
func NewDrag(ids []string, locked func(index int) bool) *Drag {
	cp := make([]string, len(ids))
	copy(cp, ids)
	return &Drag{ids: cp, phase: Idle, source: -1, target: -1, locked: locked}
}

func (d *Drag) Phase() Phase { return d.phase }

// Start picks up the item at index. It reports false when the gesture cannot start.
func (d *Drag) Start(index int) bool {
	if d.phase != Idle || index < 0 || index >= len(d.ids) {
		return false
	}
	if d.locked != nil && d.locked(index) {
		return false
	}
	d.phase = Dragging
	d.source = index
	d.target = -1
	return true
}

// Hover moves the pointer over a valid target index. Out of range indexes behave like
// Leave.
func (d *Drag) Hover(index int) {
	if d.phase != Dragging && d.phase != Hovering {
		return
	}
	if index < 0 || index >= len(d.ids) {
		d.Leave()
		return
	}
	d.phase = Hovering
	d.target = index
}

// Leave moves the pointer off every valid target.
func (d *Drag) Leave() {
	if d.phase == Hovering {
		d.phase = Dragging
		d.target = -1
	}
}

// Drop ends the gesture. Dropping without a target or onto the source cancels it.
func (d *Drag) Drop() Drop {
	if d.phase != Hovering || d.target == d.source {
		return d.Cancel()
	}
	ids, err := Move(d.ids, d.source, d.target)
	if err != nil {
		return d.Cancel()
	}
	res := Drop{Moved: true, From: d.source, To: d.target, IDs: ids, Phase: Dropped}
	d.reset()
	return res
}

// Cancel abandons the gesture without any change.
func (d *Drag) Cancel() Drop {
	res := Drop{From: d.source, To: d.target, Phase: Cancelled}
	d.reset()
	return res
}

// reset returns to Idle so the next gesture can start.
func (d *Drag) reset() {
	d.phase = Idle
	d.source = -1
	d.target = -1
}
