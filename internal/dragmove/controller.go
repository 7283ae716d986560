// Package dragmove turns a drag gesture between entries into a validated
// move. Drops that would create a cycle or change nothing are refused
// before any backend call.
package dragmove

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
	"github.com/ngenohkevin/hivedeck-drive/internal/metrics"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/notify"
)

// Mover commits a move on the backend.
type Mover interface {
	MoveEntry(ctx context.Context, id int64, newParent *int64) (drive.Ack, error)
}

// Tree is the navigator's view of the loaded tree plus the follow-up
// actions a successful drop triggers.
type Tree interface {
	Lookup(id int64) (models.Entry, bool)
	ParentOf(id int64) (*int64, bool)
	IsKnownDescendant(target, ancestor int64) bool
	ResolveTarget(id int64) *int64
	CurrentFolder() *int64
	RootLabel() string
	NoteMoved(id int64, newParent *int64)
	AfterMutation(ctx context.Context)
	UploadTo(ctx context.Context, files []drive.UploadFile, target *int64) error
}

// State is the transient drag state shown by the renderers.
type State struct {
	Dragging    bool        `json:"dragging"`
	DraggedID   *int64      `json:"draggedId,omitempty"`
	DraggedKind models.Kind `json:"draggedKind,omitempty"`
	HoverID     *int64      `json:"hoverId,omitempty"`
}

// Controller is the drag-move controller.
type Controller struct {
	mover   Mover
	tree    Tree
	notices notify.Sink
	log     *logging.Logger

	mu      sync.Mutex
	payload *Payload
	hover   *int64
}

// New creates a controller.
func New(mover Mover, tree Tree, notices notify.Sink, log *logging.Logger) *Controller {
	if notices == nil {
		notices = notify.Discard{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{mover: mover, tree: tree, notices: notices, log: log.Component("dragmove")}
}

// DragStart records the dragged entry and returns the transfer payload.
func (c *Controller) DragStart(id int64, kind models.Kind) Payload {
	if kind == "" {
		if e, ok := c.tree.Lookup(id); ok {
			kind = e.Kind
		}
	}

	p := EntryPayload(id, kind)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = &p
	c.hover = nil
	return p
}

// DragOver marks candidate as the hover target. Only entry moves onto
// folders are accepted; external file drags get no hover feedback.
func (c *Controller) DragOver(p Payload, candidate int64) bool {
	if !p.IsEntryMove() {
		return false
	}
	if e, ok := c.tree.Lookup(candidate); ok && !e.IsFolder() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hover = models.ID(candidate)
	return true
}

// DragLeave clears the hover target if it is candidate.
func (c *Controller) DragLeave(candidate int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hover != nil && *c.hover == candidate {
		c.hover = nil
	}
}

// Current returns the payload recorded by DragStart.
func (c *Controller) Current() (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payload == nil {
		return Payload{}, false
	}
	return *c.payload, true
}

// Drop handles a drop onto candidate, a folder id or the root sentinel
// carried by the parent entry. Drag state is cleared whatever the outcome.
func (c *Controller) Drop(ctx context.Context, p Payload, candidate int64) error {
	return c.DropInto(ctx, p, c.tree.ResolveTarget(candidate))
}

// DropOnList handles a drop onto the list body, i.e. the current folder.
func (c *Controller) DropOnList(ctx context.Context, p Payload) error {
	return c.DropInto(ctx, p, c.tree.CurrentFolder())
}

// DropInto handles a drop whose target folder is already resolved.
func (c *Controller) DropInto(ctx context.Context, p Payload, target *int64) error {
	defer c.DragEnd()

	if p.Kind == PayloadFiles {
		return c.tree.UploadTo(ctx, p.Files, target)
	}
	if !p.IsEntryMove() {
		return ErrNotEntryMove
	}

	if err := c.validate(p, target); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyInFolder):
			metrics.RecordMoveRejection("noop")
			c.notices.Info(drive.OpMove, err.Error())
		case drive.IsValidation(err):
			metrics.RecordMoveRejection("not_folder")
			c.notices.Failure(drive.OpMove, err)
		default:
			metrics.RecordMoveRejection("cycle")
			c.notices.Failure(drive.OpMove, err)
		}
		c.log.Debug().Err(err).Int64("entry", p.EntryID).Str("target", models.FolderLabel(target)).Msg("drop rejected")
		return err
	}

	ack, err := c.mover.MoveEntry(ctx, p.EntryID, target)
	if err != nil {
		c.notices.Failure(drive.OpMove, err)
		return err
	}

	c.tree.NoteMoved(p.EntryID, target)

	msg := ack.Message
	if msg == "" {
		msg = fmt.Sprintf("Moved to %s", c.folderName(target))
	}
	c.log.Info().Int64("entry", p.EntryID).Str("target", models.FolderLabel(target)).Msg("entry moved")
	c.notices.Success(drive.OpMove, msg)
	c.tree.AfterMutation(ctx)
	return nil
}

// Validate runs the drop checks without moving anything.
func (c *Controller) Validate(p Payload, target *int64) error {
	if !p.IsEntryMove() {
		return ErrNotEntryMove
	}
	return c.validate(p, target)
}

// validate applies, in order: self target, non-folder target, descendant
// target for folders, and unchanged parent.
func (c *Controller) validate(p Payload, target *int64) error {
	id := p.EntryID

	if target != nil && *target == id {
		return &MoveCycleError{EntryID: id, TargetID: id, Self: true}
	}
	if target != nil {
		if dest, ok := c.tree.Lookup(*target); ok && !dest.IsFolder() {
			return drive.Invalid(drive.OpMove, fmt.Sprintf("%q is not a folder", dest.Name))
		}
	}

	kind := p.EntryKind
	if kind == "" {
		if e, ok := c.tree.Lookup(id); ok {
			kind = e.Kind
		}
	}
	if kind == models.KindFolder && target != nil && c.tree.IsKnownDescendant(*target, id) {
		return &MoveCycleError{EntryID: id, TargetID: *target}
	}

	if parent, ok := c.tree.ParentOf(id); ok && models.SameFolder(parent, target) {
		return ErrAlreadyInFolder
	}
	return nil
}

// DragEnd clears all transient drag state.
func (c *Controller) DragEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = nil
	c.hover = nil
}

// State returns the transient drag state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{HoverID: c.hover}
	if c.payload != nil {
		s.Dragging = true
		s.DraggedID = models.ID(c.payload.EntryID)
		s.DraggedKind = c.payload.EntryKind
	}
	if s.HoverID != nil {
		s.HoverID = models.ID(*s.HoverID)
	}
	return s
}

func (c *Controller) folderName(target *int64) string {
	if target == nil {
		return c.tree.RootLabel()
	}
	if e, ok := c.tree.Lookup(*target); ok {
		return e.Name
	}
	return fmt.Sprintf("folder %d", *target)
}
