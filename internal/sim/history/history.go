package history

// History is a bounded undo stack with a redo stack. Pushing a new entry
// clears the redo stack.
type History struct {
	Max  int
	undo []*Entry
	redo []*Entry

	// OnApply, if set, is called for each entry applied by Undo or Redo with
	// the entry actually written to the world.
	OnApply func(action string, e *Entry)
}

func New(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{Max: max}
}

func (h *History) Push(e *Entry) error {
	if e == nil || !e.Finished() {
		return ErrNotFinished
	}
	h.redo = nil
	h.undo = append(h.undo, e)
	if over := len(h.undo) - h.Max; over > 0 {
		copy(h.undo, h.undo[over:])
		for i := len(h.undo) - over; i < len(h.undo); i++ {
			h.undo[i] = nil
		}
		h.undo = h.undo[:len(h.undo)-over]
	}
	return nil
}

// Undo reverts up to n entries, most recent first, and returns how many
// were reverted.
func (h *History) Undo(w Writer, n int) int {
	done := 0
	for done < n && len(h.undo) > 0 {
		e := h.undo[len(h.undo)-1]
		h.undo = h.undo[:len(h.undo)-1]
		inv := e.Inverse()
		inv.Apply(w)
		if h.OnApply != nil {
			h.OnApply("UNDO", inv)
		}
		h.redo = append(h.redo, e)
		done++
	}
	return done
}

// Redo reapplies up to n undone entries and returns how many were applied.
func (h *History) Redo(w Writer, n int) int {
	done := 0
	for done < n && len(h.redo) > 0 {
		e := h.redo[len(h.redo)-1]
		h.redo = h.redo[:len(h.redo)-1]
		e.Apply(w)
		if h.OnApply != nil {
			h.OnApply("REDO", e)
		}
		h.undo = append(h.undo, e)
		done++
	}
	return done
}

func (h *History) UndoLen() int { return len(h.undo) }
func (h *History) RedoLen() int { return len(h.redo) }

func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
