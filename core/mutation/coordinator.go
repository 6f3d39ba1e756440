// Package mutation runs the deletes and identifier changes issued from the console:
// it calls the backend, keeps the local mirror in step and tells the list what to drop.
package mutation

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/record"
)

type (
	// API is the part of the backend client the coordinator needs.
	API interface {
		Delete(ctx context.Context, kind record.Kind, id string) error
		Create(ctx context.Context, kind record.Kind, rec record.Map) error
		Update(ctx context.Context, kind record.Kind, id string, rec record.Map) error
	}

	// Mirror is the local cache mirror. Its failures are logged, never shown.
	Mirror interface {
		RemoveRecord(ctx context.Context, kind record.Kind, id string) error
	}

	// Remover is the list holding the records on screen.
	Remover interface {
		MarkPending(id string)
		ClearPending(id string)
		Remove(id string, tag record.Tag)
	}

	// Confirmer asks the user a yes/no question and blocks until answered.
	Confirmer interface {
		Confirm(ctx context.Context, prompt string) (bool, error)
	}

	// ConfirmFunc adapts a function to Confirmer.
	ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

	// Validator checks an edit request before any call is made.
	Validator func(kind record.Kind, rec record.Map) error

	Options struct {
		API    API
		Mirror Mirror
		Logger core.Logger

		Validate Validator

		// RemoteSubjectDelete makes subject card deletes reach the backend. Off, they only touch the view.
		RemoteSubjectDelete bool
		// CompensateRename deletes the newly created record when the old one could not be removed.
		CompensateRename bool

		// Alerts is notified of partially applied renames when set.
		Alerts          core.EmailService
		AlertRecipients []mail.Address
	}

	Coordinator struct {
		opts    Options
		flights *flights
	}
)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Yes is a Confirmer for callers that collected the confirmation beforehand.
var Yes Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

func NewCoordinator(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = core.NopLogger()
	}
	return &Coordinator{opts: opts, flights: newFlights()}
}

// InFlight reports whether a mutation on (kind, id) is running.
func (c *Coordinator) InFlight(kind record.Kind, id string) bool {
	return c.flights.InFlight(kind, id)
}

// DeletePrompt is the confirmation question asked before deleting.
func DeletePrompt(kind record.Kind, id string) string {
	return fmt.Sprintf("Are you sure you want to delete %s %s?", strings.ToLower(record.Spec(kind).Label), id)
}

// Delete removes the record identified by id after confirmation. On success the record is
// dropped from the mirror and from view. When the backend does not confirm the delete, classes,
// teachers and students are removed locally anyway and tagged DeleteFailed; the error is still reported.
func (c *Coordinator) Delete(ctx context.Context, kind record.Kind, id string, confirm Confirmer, view Remover) Outcome {
	t := c.start(kind, id)
	spec := record.Spec(kind)
	if spec.Kind == "" {
		return t.fail(errors.Wrapf(record.ErrUnknownKind, "%q", kind), "Unknown entity kind.")
	}
	if strings.TrimSpace(id) == "" {
		err := core.NewValidationError(nil, core.FieldError{Field: spec.IDField, Error: "identifier is required"})
		return t.fail(err, fmt.Sprintf("Cannot delete a %s without an identifier.", strings.ToLower(spec.Label)))
	}

	release, err := c.flights.acquire(kind, id)
	if err != nil {
		return t.fail(err, fmt.Sprintf("%s %s is already being changed; please wait.", spec.Label, id))
	}
	defer release()

	if confirm != nil {
		t.move(Confirming)
		ok, err := confirm.Confirm(ctx, DeletePrompt(kind, id))
		if err != nil {
			return t.fail(errors.Wrap(err, "confirming delete"), "Delete was not confirmed.")
		}
		if !ok {
			t.move(Cancelled)
			c.opts.Logger.Debug(fmt.Sprintf("mutation %s: delete of %s %s cancelled", t.out.ID, kind, id))
			return t.out
		}
	}

	if view != nil {
		view.MarkPending(id)
	}
	t.move(Requesting)

	if spec.DormantDelete && !c.opts.RemoteSubjectDelete {
		// the backend is never asked: the record only leaves the current view
		if view != nil {
			view.Remove(id, record.DeleteFailed)
		}
		t.out.Tag = record.DeleteFailed
		c.opts.Logger.Info(fmt.Sprintf("mutation %s: %s %s removed from view only", t.out.ID, kind, id))
		return t.succeed(fmt.Sprintf("%s %s removed from this view. It was not deleted on the server.", spec.Label, id))
	}

	err = c.opts.API.Delete(ctx, kind, id)
	if err == nil {
		c.removeFromMirror(ctx, t.out.ID, kind, id)
		if view != nil {
			view.Remove(id, record.Confirmed)
		}
		t.out.Tag = record.Confirmed
		c.opts.Logger.Info(fmt.Sprintf("mutation %s: %s %s deleted", t.out.ID, kind, id))
		return t.succeed(fmt.Sprintf("%s %s deleted successfully.", spec.Label, id))
	}

	reason := UserMessage(err, fmt.Sprintf("Failed to delete %s.", strings.ToLower(spec.Label)))
	if spec.DegradeOnDeleteFailure {
		// the backend failed: remove from local data anyway
		c.removeFromMirror(ctx, t.out.ID, kind, id)
		if view != nil {
			view.Remove(id, record.DeleteFailed)
		}
		t.out.Tag = record.DeleteFailed
		c.opts.Logger.Warn(fmt.Sprintf("mutation %s: delete of %s %s not confirmed by the backend, removed locally", t.out.ID, kind, id), err)
		return t.fail(err, sentence(reason)+" It was removed from local data; it may reappear after a refresh.")
	}

	if view != nil {
		view.ClearPending(id)
	}
	c.opts.Logger.Warn(fmt.Sprintf("mutation %s: delete of %s %s failed", t.out.ID, kind, id), err)
	return t.fail(err, reason)
}

func (c *Coordinator) removeFromMirror(ctx context.Context, mutationID string, kind record.Kind, id string) {
	if c.opts.Mirror == nil {
		return
	}
	if err := c.opts.Mirror.RemoveRecord(ctx, kind, id); err != nil {
		c.opts.Logger.Error(fmt.Sprintf("mutation %s: updating mirror for %s %s: %v", mutationID, kind, id, err), err)
	}
}

// tracker walks one mutation through the state machine.
type tracker struct {
	out Outcome
	log core.Logger
}

func (c *Coordinator) start(kind record.Kind, id string) *tracker {
	return &tracker{
		out: Outcome{
			ID:     ulid.Make().String(),
			Kind:   kind,
			Target: id,
			State:  Idle,
			Trail:  []State{Idle},
		},
		log: c.opts.Logger,
	}
}

func (t *tracker) move(s State) {
	if !CanMove(t.out.State, s) {
		t.log.Warn(fmt.Sprintf("mutation %s: unexpected transition %s -> %s", t.out.ID, t.out.State, s))
	}
	t.out.State = s
	t.out.Trail = append(t.out.Trail, s)
}

func (t *tracker) succeed(msg string) Outcome {
	t.move(Succeeded)
	t.out.Message = msg
	return t.out
}

func (t *tracker) partial(err error, msg string) Outcome {
	t.move(PartiallySucceeded)
	t.out.Err = err
	t.out.Message = msg
	return t.out
}

func (t *tracker) fail(err error, msg string) Outcome {
	t.move(Failed)
	t.out.Err = err
	t.out.Message = msg
	return t.out
}

// sentence terminates msg with a period unless it already ends a sentence.
func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" || strings.HasSuffix(msg, ".") || strings.HasSuffix(msg, "!") || strings.HasSuffix(msg, "?") {
		return msg
	}
	return msg + "."
}

// UserMessage returns the message an error carries for the user, or fallback.
func UserMessage(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return fallback
}
