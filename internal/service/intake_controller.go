package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"scandesk/internal/domain"
	"scandesk/internal/editor"
	"scandesk/internal/geometry"
	"scandesk/internal/merge"
)

// ViewModel is the presentation state of one intake session.
type ViewModel struct {
	SessionID      string                 `json:"session_id"`
	Generation     uint64                 `json:"generation"`
	File           *domain.FileInfo       `json:"file"`
	Result         *domain.AnalysisResult `json:"result"`
	Corners        []domain.Point         `json:"corners"`
	DisplayCorners []domain.Point         `json:"display_corners"`
	AutoCorners    []domain.Point         `json:"auto_corners"`
	NativeSize     geometry.Size          `json:"native_size"`
	Mode           domain.EditorMode      `json:"mode"`
	ActiveCorner   int                    `json:"active_corner"`
	Scale          domain.DisplayScale    `json:"scale"`
	PendingAction  domain.Action          `json:"pending_action"`
	Loading        bool                   `json:"loading"`
	Error          string                 `json:"error,omitempty"`
	JobID          string                 `json:"job_id,omitempty"`
	JobStatus      domain.JobStatus       `json:"job_status,omitempty"`
	Closed         bool                   `json:"closed,omitempty"`
}

// IntakeController orchestrates file selection, analysis, corner editing and
// re-submission for one session. All state lives behind mu; network calls
// are made without holding it.
type IntakeController struct {
	id       string
	analyzer Analyzer
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	closed    bool
	gen       uint64
	file      *domain.ImageFile
	result    *domain.AnalysisResult
	editor    editor.State
	rendered  geometry.Size
	natural   geometry.Size
	pending   domain.Action
	errMsg    string
	jobID     string
	jobStatus domain.JobStatus
	drag      *DragSession
	subs      map[int]chan ViewModel
	nextSub   int
}

// NewIntakeController creates a controller with no file selected.
func NewIntakeController(id string, analyzer Analyzer) *IntakeController {
	ctx, cancel := context.WithCancel(context.Background())
	return &IntakeController{
		id:       id,
		analyzer: analyzer,
		ctx:      ctx,
		cancel:   cancel,
		editor:   editor.New(),
		subs:     make(map[int]chan ViewModel),
	}
}

// ID returns the session id.
func (c *IntakeController) ID() string { return c.id }

// SelectFile replaces the current file and resets all derived state.
// Responses to requests made for a previous file are discarded.
func (c *IntakeController) SelectFile(img domain.ImageFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}

	c.gen++
	c.file = &img
	c.result = nil
	c.editor = editor.New()
	c.rendered = geometry.Size{}
	c.natural = geometry.Size{}
	c.pending = domain.ActionNone
	c.errMsg = ""
	c.jobID = ""
	c.jobStatus = ""
	c.drag = nil
	c.notifyLocked()
	return nil
}

// Analyze submits the current file in basic mode and seeds the corner
// editor from the response.
func (c *IntakeController) Analyze(ctx context.Context) error {
	req, err := c.beginAnalyze()
	if err != nil {
		return err
	}
	return c.finishAnalyze(ctx, req)
}

// ApplyCorners re-submits the current file with the edited corners and
// replaces the whole result. The edited and detected corners are kept.
func (c *IntakeController) ApplyCorners(ctx context.Context) error {
	req, err := c.beginApplyCorners()
	if err != nil {
		return err
	}
	return c.finishApplyCorners(ctx, req)
}

// RerunOCR asks for an enhanced OCR pass and merges only the OCR output
// into the current result.
func (c *IntakeController) RerunOCR(ctx context.Context) error {
	req, err := c.beginRerunOCR()
	if err != nil {
		return err
	}
	return c.finishRerunOCR(ctx, req)
}

// Start reserves the pending slot for action and completes it in the
// background, bound to the controller's lifetime. Precondition failures are
// returned immediately; the outcome is reported through the view model.
func (c *IntakeController) Start(action domain.Action) error {
	var (
		req    actionRequest
		finish func(context.Context, actionRequest) error
		err    error
	)
	switch action {
	case domain.ActionAnalyze:
		req, err = c.beginAnalyze()
		finish = c.finishAnalyze
	case domain.ActionApplyCorners:
		req, err = c.beginApplyCorners()
		finish = c.finishApplyCorners
	case domain.ActionRerunOCR:
		req, err = c.beginRerunOCR()
		finish = c.finishRerunOCR
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return err
	}

	go func() {
		if err := finish(c.ctx, req); err != nil && !IsStale(err) {
			log.Printf("intakeController[%s]: background %s: %v", c.id, action, err)
		}
	}()
	return nil
}

func (c *IntakeController) beginAnalyze() (actionRequest, error) {
	return c.begin(domain.ActionAnalyze, func() (domain.AnalyzeOptions, error) {
		return domain.AnalyzeRequest(), nil
	})
}

func (c *IntakeController) finishAnalyze(ctx context.Context, req actionRequest) error {
	result, err := c.run(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settleLocked(req, err); err != nil {
		return err
	}

	c.result = result
	c.editor = editor.Seed(c.nativeSizeLocked(result), result.Boundary)
	c.drag = nil
	c.notifyLocked()
	return nil
}

func (c *IntakeController) beginApplyCorners() (actionRequest, error) {
	return c.begin(domain.ActionApplyCorners, func() (domain.AnalyzeOptions, error) {
		if c.result == nil {
			return domain.AnalyzeOptions{}, domain.ErrNoResult
		}
		if !c.editor.Ready() {
			return domain.AnalyzeOptions{}, domain.ErrCornersUnavailable
		}
		return domain.ApplyCornersRequest(c.editor.Corners()), nil
	})
}

func (c *IntakeController) finishApplyCorners(ctx context.Context, req actionRequest) error {
	result, err := c.run(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settleLocked(req, err); err != nil {
		return err
	}

	c.result = result
	c.editor = c.editor.ExitAdjustMode()
	c.drag = nil
	c.notifyLocked()
	return nil
}

func (c *IntakeController) beginRerunOCR() (actionRequest, error) {
	return c.begin(domain.ActionRerunOCR, func() (domain.AnalyzeOptions, error) {
		if c.result == nil {
			return domain.AnalyzeOptions{}, domain.ErrNoResult
		}
		return domain.RerunOCRRequest(domain.OCRModeEnhanced), nil
	})
}

func (c *IntakeController) finishRerunOCR(ctx context.Context, req actionRequest) error {
	partial, err := c.run(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settleLocked(req, err); err != nil {
		return err
	}

	merged, err := merge.OCRRerun(c.result, partial)
	if err != nil {
		c.errMsg = domain.UserMessage(err)
		c.notifyLocked()
		return fmt.Errorf("merging ocr rerun: %w", err)
	}
	c.result = merged
	c.notifyLocked()
	return nil
}

// UpdateLayout records the rendered size of the image and, when known, its
// natural size as reported by the viewer. A natural size arriving after an
// analysis that carried no dimensions seeds the corner editor.
func (c *IntakeController) UpdateLayout(rendered, natural geometry.Size) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	c.rendered = rendered
	if natural.Valid() {
		c.natural = natural
		// A result without original_preview waits for the viewer's size.
		if c.result != nil && !c.editor.Ready() {
			c.editor = editor.Seed(natural, c.result.Boundary)
		}
	}
	c.notifyLocked()
	return nil
}

// EnterAdjustMode makes corner handles draggable.
func (c *IntakeController) EnterAdjustMode() error {
	return c.editLocked(func(s editor.State) (editor.State, error) {
		if !s.Ready() {
			return s, domain.ErrCornersUnavailable
		}
		return s.EnterAdjustMode(), nil
	})
}

// ExitAdjustMode makes corner handles inert and ends any drag.
func (c *IntakeController) ExitAdjustMode() error {
	return c.editLocked(func(s editor.State) (editor.State, error) {
		return s.ExitAdjustMode(), nil
	})
}

// ResetCorners restores the detected corners, or the synthetic rectangle.
func (c *IntakeController) ResetCorners() error {
	return c.editLocked(func(s editor.State) (editor.State, error) {
		if !s.Ready() {
			return s, domain.ErrCornersUnavailable
		}
		return s.ResetToAuto(), nil
	})
}

// BeginDrag starts dragging corner index. The returned session applies
// pointer moves until it is ended or superseded.
func (c *IntakeController) BeginDrag(index int) (*DragSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domain.ErrSessionClosed
	}
	next, err := c.editor.BeginDrag(index)
	if err != nil {
		return nil, err
	}
	c.editor = next
	c.drag = &DragSession{c: c, index: index}
	c.notifyLocked()
	return c.drag, nil
}

// ActiveDrag returns the drag in progress, or nil.
func (c *IntakeController) ActiveDrag() *DragSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag
}

// Snapshot returns the current view model.
func (c *IntakeController) Snapshot() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that always holds the most recent view model
// and a function that unsubscribes and closes it.
func (c *IntakeController) Subscribe() (<-chan ViewModel, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan ViewModel, 1)
	if c.closed {
		ch <- c.snapshotLocked()
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Watched reports whether any subscriber is attached.
func (c *IntakeController) Watched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) > 0
}

// Close cancels in-flight requests and polling, ends any drag and closes
// every subscription. Later calls fail with ErrSessionClosed.
func (c *IntakeController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.drag = nil
	c.editor = c.editor.ExitAdjustMode()
	c.cancel()

	vm := c.snapshotLocked()
	for id, ch := range c.subs {
		publish(ch, vm)
		close(ch)
		delete(c.subs, id)
	}
	log.Printf("intakeController[%s]: closed", c.id)
}

// DragSession scopes one corner drag. It stops applying moves once ended,
// when another file is selected, or when the controller closes.
type DragSession struct {
	c     *IntakeController
	index int
}

// Index returns the corner being dragged.
func (d *DragSession) Index() int { return d.index }

// Move applies one pointer position given in display space.
func (d *DragSession) Move(pointer domain.Point) error {
	c := d.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	if c.drag != d {
		return domain.ErrDragEnded
	}
	c.editor = c.editor.UpdateDrag(pointer, c.mapperLocked())
	c.notifyLocked()
	return nil
}

// End finishes the drag. Calling it more than once is harmless.
func (d *DragSession) End() {
	c := d.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag != d {
		return
	}
	c.drag = nil
	c.editor = c.editor.EndDrag()
	c.notifyLocked()
}

type actionRequest struct {
	action domain.Action
	gen    uint64
	img    domain.ImageFile
	opts   domain.AnalyzeOptions
}

// begin reserves the single pending-action slot. prepare runs under the lock
// and builds the request options from the current state.
func (c *IntakeController) begin(action domain.Action, prepare func() (domain.AnalyzeOptions, error)) (actionRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return actionRequest{}, domain.ErrSessionClosed
	case c.file == nil:
		return actionRequest{}, domain.ErrNoFile
	case c.pending != domain.ActionNone:
		return actionRequest{}, domain.ErrActionPending
	}
	opts, err := prepare()
	if err != nil {
		return actionRequest{}, err
	}

	c.pending = action
	c.errMsg = ""
	c.jobID = ""
	c.jobStatus = ""
	c.notifyLocked()
	return actionRequest{action: action, gen: c.gen, img: *c.file, opts: opts}, nil
}

func (c *IntakeController) run(ctx context.Context, req actionRequest) (*domain.AnalysisResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	return c.analyzer.Analyze(ctx, AnalyzeInput{
		Image:    req.img,
		Options:  req.opts,
		Progress: c.progress(req.gen),
	})
}

func (c *IntakeController) progress(gen uint64) func(string, domain.JobStatus) {
	return func(jobID string, status domain.JobStatus) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || gen != c.gen {
			return
		}
		c.jobID = jobID
		c.jobStatus = status
		c.notifyLocked()
	}
}

// settleLocked releases the pending slot for req and records err. It
// returns a non-nil error when the caller must not apply a result.
func (c *IntakeController) settleLocked(req actionRequest, err error) error {
	if c.closed {
		return domain.ErrSessionClosed
	}
	if req.gen != c.gen {
		log.Printf("intakeController[%s]: dropping %s response for generation %d (current %d)", c.id, req.action, req.gen, c.gen)
		return domain.ErrStaleResponse
	}

	c.pending = domain.ActionNone
	if err != nil {
		c.errMsg = domain.UserMessage(err)
		log.Printf("intakeController[%s]: %s failed: %v", c.id, req.action, err)
		c.notifyLocked()
		return err
	}
	return nil
}

func (c *IntakeController) editLocked(fn func(editor.State) (editor.State, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	next, err := fn(c.editor)
	if err != nil {
		return err
	}
	c.editor = next
	if !next.Dragging() {
		c.drag = nil
	}
	c.notifyLocked()
	return nil
}

// nativeSizeLocked prefers the dimensions reported by the service and falls
// back to the viewer's natural size.
func (c *IntakeController) nativeSizeLocked(result *domain.AnalysisResult) geometry.Size {
	if w, h, ok := result.NativeSize(); ok {
		return geometry.SizeOf(w, h)
	}
	return c.natural
}

func (c *IntakeController) mapperLocked() geometry.Mapper {
	native := c.natural
	if c.editor.Ready() {
		native = c.editor.NativeSize()
	}
	return geometry.NewMapper(c.rendered, native)
}

func (c *IntakeController) snapshotLocked() ViewModel {
	m := c.mapperLocked()
	vm := ViewModel{
		SessionID:     c.id,
		Generation:    c.gen,
		File:          c.file.Info(),
		Result:        c.result,
		NativeSize:    m.Native(),
		Mode:          c.editor.Mode(),
		ActiveCorner:  c.editor.ActiveIndex(),
		Scale:         m.Scale(),
		PendingAction: c.pending,
		Loading:       c.pending != domain.ActionNone,
		Error:         c.errMsg,
		JobID:         c.jobID,
		JobStatus:     c.jobStatus,
		Closed:        c.closed,
	}
	if c.editor.Ready() {
		q := c.editor.Corners()
		vm.Corners = q.Points()
		vm.DisplayCorners = m.QuadToDisplay(q).Points()
		if auto := c.editor.AutoCorners(); auto != nil {
			vm.AutoCorners = auto.Points()
		}
	}
	return vm
}

func (c *IntakeController) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	vm := c.snapshotLocked()
	for _, ch := range c.subs {
		publish(ch, vm)
	}
}

// publish replaces whatever is buffered in ch with vm without blocking.
func publish(ch chan ViewModel, vm ViewModel) {
	select {
	case ch <- vm:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- vm:
	default:
	}
}

// IsStale reports whether err only signals a superseded or closed session.
func IsStale(err error) bool {
	return errors.Is(err, domain.ErrStaleResponse) || errors.Is(err, domain.ErrSessionClosed)
}
