package document

import (
	"context"
	"errors"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/looplab/fsm"
)

// Status is the lifecycle state of a document
type Status string

const (
	StatusClosed  Status = "CLOSED"
	StatusOpening Status = "OPENING"
	StatusOpened  Status = "OPENED"
	StatusClosing Status = "CLOSING"
)

const (
	eventOpen        = "open"
	eventOpened      = "opened"
	eventOpenFailed  = "open_failed"
	eventClose       = "close"
	eventClosed      = "closed"
	eventCloseFailed = "close_failed"
)

func newStatusMachine(key string, log logger.ILogger) *fsm.FSM {
	return fsm.NewFSM(
		string(StatusClosed),
		fsm.Events{
			{Name: eventOpen, Src: []string{string(StatusClosed)}, Dst: string(StatusOpening)},
			{Name: eventOpened, Src: []string{string(StatusOpening)}, Dst: string(StatusOpened)},
			{Name: eventOpenFailed, Src: []string{string(StatusOpening)}, Dst: string(StatusClosed)},
			{Name: eventClose, Src: []string{string(StatusOpened)}, Dst: string(StatusClosing)},
			{Name: eventClosed, Src: []string{string(StatusClosing)}, Dst: string(StatusClosed)},
			{Name: eventCloseFailed, Src: []string{string(StatusClosing)}, Dst: string(StatusOpened)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debugf("document %q: %s -> %s (%s)", key, e.Src, e.Dst, e.Event)
			},
		},
	)
}

// fire runs a transition. Transitions are driven only while the document mutex is held, so
// a rejected event means a broken invariant and is logged as an error.
func (d *Document) fire(event string) {
	err := d.status.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		d.log.Errorf("document %q: transition %s from %s rejected: %v", d.key, event, d.status.Current(), err)
	}
}

// Status returns the current lifecycle state
func (d *Document) Status() Status {
	return Status(d.status.Current())
}
