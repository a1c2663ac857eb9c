// Package editor holds the document-corner editing state. Every operation
// is a pure transition: it returns a new State and leaves the receiver as
// it was.
package editor

import (
	"scandesk/internal/domain"
	"scandesk/internal/geometry"
)

// NoDrag marks that no corner is being dragged.
const NoDrag = -1

// State is the corner editor's full state.
type State struct {
	mode   domain.EditorMode
	quad   domain.Quadrilateral
	auto   *domain.Quadrilateral
	native geometry.Size
	active int
	ready  bool
}

// New returns an empty editor in viewing mode with no image loaded.
func New() State {
	return State{mode: domain.EditorModeViewing, active: NoDrag}
}

// Seed initializes corners for a freshly analyzed image. Detected corners
// are used only when the boundary was found with exactly four points;
// otherwise the synthetic inset rectangle is used. The editor returns to
// viewing mode.
func Seed(native geometry.Size, boundary *domain.BoundaryDetection) State {
	s := New()
	if !native.Valid() {
		return s
	}
	s.native = native
	s.ready = true

	if q, ok := boundary.Quad(); ok {
		s.quad = clampQuad(q, native)
		auto := s.quad
		s.auto = &auto
		return s
	}
	s.quad = geometry.SyntheticQuad(native)
	return s
}

// Ready reports whether the editor has corners for a known image size.
func (s State) Ready() bool { return s.ready }

// Mode returns the current interaction mode.
func (s State) Mode() domain.EditorMode { return s.mode }

// Corners returns the current quadrilateral in native space.
func (s State) Corners() domain.Quadrilateral { return s.quad }

// AutoCorners returns a copy of the service-detected corners, if any.
func (s State) AutoCorners() *domain.Quadrilateral {
	if s.auto == nil {
		return nil
	}
	q := *s.auto
	return &q
}

// NativeSize returns the image dimensions the corners are bounded by.
func (s State) NativeSize() geometry.Size { return s.native }

// ActiveIndex returns the corner being dragged, or NoDrag.
func (s State) ActiveIndex() int { return s.active }

// Dragging reports whether a drag is in progress.
func (s State) Dragging() bool { return s.active != NoDrag }

// EnterAdjustMode makes corner handles interactive.
func (s State) EnterAdjustMode() State {
	s.mode = domain.EditorModeAdjusting
	return s
}

// ExitAdjustMode makes handles inert and ends any drag.
func (s State) ExitAdjustMode() State {
	s.mode = domain.EditorModeViewing
	s.active = NoDrag
	return s
}

// BeginDrag records which corner is being moved.
func (s State) BeginDrag(index int) (State, error) {
	switch {
	case !s.ready:
		return s, domain.ErrCornersUnavailable
	case s.mode != domain.EditorModeAdjusting:
		return s, domain.ErrNotAdjusting
	case s.active != NoDrag:
		return s, domain.ErrDragInProgress
	case index < 0 || index >= len(s.quad):
		return s, domain.ErrCornerIndex
	}
	s.active = index
	return s, nil
}

// UpdateDrag moves the active corner to the pointer position given in
// display space. The position is mapped to native space and clamped to the
// image bounds; every other corner is left untouched. Without an active
// drag or a usable mapping this is a no-op.
func (s State) UpdateDrag(pointer domain.Point, m geometry.Mapper) State {
	if !s.ready || s.active == NoDrag || m.Degenerate() {
		return s
	}
	s.quad[s.active] = geometry.Clamp(m.ToNative(pointer), s.native)
	return s
}

// EndDrag clears the active corner.
func (s State) EndDrag() State {
	s.active = NoDrag
	return s
}

// ResetToAuto restores the detected corners, or regenerates the synthetic
// rectangle when nothing was detected.
func (s State) ResetToAuto() State {
	if !s.ready {
		return s
	}
	s.active = NoDrag
	if s.auto != nil {
		s.quad = *s.auto
		return s
	}
	s.quad = geometry.SyntheticQuad(s.native)
	return s
}

// SetCorners replaces the corners with external data. Input that is not
// exactly four points falls back to the synthetic rectangle.
func (s State) SetCorners(pts []domain.Point) State {
	if !s.ready {
		return s
	}
	s.active = NoDrag
	if q, ok := domain.QuadFromPoints(pts); ok {
		s.quad = clampQuad(q, s.native)
		return s
	}
	s.quad = geometry.SyntheticQuad(s.native)
	return s
}

func clampQuad(q domain.Quadrilateral, native geometry.Size) domain.Quadrilateral {
	for i := range q {
		q[i] = geometry.Clamp(q[i], native)
	}
	return q
}
