package mutation

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/record"
)

// Update saves req over the record currently identified by oldID.
//
// When the kind has a user-editable identifier and req carries a different one, the change is a
// two-step saga rather than an update: (a) create the record under the new identifier with every
// submitted field, then (b) delete the old one, only if (a) succeeded. A failed (b) leaves both
// records on the backend and ends PartiallySucceeded; it is never retried. With CompensateRename
// the new record is deleted again instead.
//
// Validation runs first; a validation error means no call was made.
func (c *Coordinator) Update(ctx context.Context, kind record.Kind, oldID string, req record.Map, view Remover) Outcome {
	t := c.start(kind, oldID)
	spec := record.Spec(kind)
	if spec.Kind == "" {
		return t.fail(errors.Wrapf(record.ErrUnknownKind, "%q", kind), "Unknown entity kind.")
	}

	req = req.Clone()
	newID := req.ID(kind)
	if newID == "" {
		newID = oldID
		req[spec.IDField] = oldID
	}
	rename := spec.EditableID && newID != oldID
	t.out.NewID = newID

	if err := c.validate(kind, req, rename); err != nil {
		return t.fail(err, UserMessage(err, "Please correct the highlighted fields."))
	}

	ids := []string{oldID}
	if rename {
		ids = append(ids, newID)
	}
	release, err := c.flights.acquire(kind, ids...)
	if err != nil {
		return t.fail(err, fmt.Sprintf("%s %s is already being changed; please wait.", spec.Label, oldID))
	}
	defer release()

	t.move(Requesting)
	if !rename {
		if err := c.opts.API.Update(ctx, kind, oldID, req); err != nil {
			c.opts.Logger.Warn(fmt.Sprintf("mutation %s: update of %s %s failed", t.out.ID, kind, oldID), err)
			return t.fail(err, UserMessage(err, fmt.Sprintf("Failed to update %s.", strings.ToLower(spec.Label))))
		}
		c.opts.Logger.Info(fmt.Sprintf("mutation %s: %s %s updated", t.out.ID, kind, oldID))
		return t.succeed(fmt.Sprintf("%s %s updated successfully.", spec.Label, oldID))
	}
	return c.rename(ctx, t, spec, oldID, newID, req, view)
}

func (c *Coordinator) rename(ctx context.Context, t *tracker, spec record.KindSpec, oldID, newID string, req record.Map, view Remover) Outcome {
	kind := spec.Kind
	label := strings.ToLower(spec.Label)

	// (a) create under the new identifier
	if err := c.opts.API.Create(ctx, kind, req); err != nil {
		c.opts.Logger.Warn(fmt.Sprintf("mutation %s: rename %s %s -> %s: create failed", t.out.ID, kind, oldID, newID), err)
		reason := UserMessage(err, fmt.Sprintf("Failed to create %s %s.", label, newID))
		return t.fail(err, fmt.Sprintf("%s %s %s was left unchanged.", reason, spec.Label, oldID))
	}

	// (b) delete the old identifier
	delErr := c.opts.API.Delete(ctx, kind, oldID)
	if delErr == nil {
		c.removeFromMirror(ctx, t.out.ID, kind, oldID)
		if view != nil {
			view.Remove(oldID, record.Confirmed)
		}
		t.out.Tag = record.Confirmed
		c.opts.Logger.Info(fmt.Sprintf("mutation %s: %s %s renamed to %s", t.out.ID, kind, oldID, newID))
		return t.succeed(fmt.Sprintf("%s %s was renamed to %s.", spec.Label, oldID, newID))
	}

	reason := UserMessage(delErr, "the server did not confirm the delete")
	if c.opts.CompensateRename {
		err := c.opts.API.Delete(ctx, kind, newID)
		if err == nil {
			c.opts.Logger.Warn(fmt.Sprintf("mutation %s: rename %s %s -> %s rolled back", t.out.ID, kind, oldID, newID), delErr)
			return t.fail(delErr, fmt.Sprintf(
				"Could not remove the old %s %s (%s). The new %s %s was deleted again; nothing changed.",
				label, oldID, reason, label, newID,
			))
		}
		c.opts.Logger.Error(fmt.Sprintf("mutation %s: rolling back %s %s failed", t.out.ID, kind, newID), err)
	}

	c.opts.Logger.Error(fmt.Sprintf("mutation %s: rename %s %s -> %s partially applied", t.out.ID, kind, oldID, newID), delErr)
	c.alert(t.out.ID, spec, oldID, newID, reason)
	return t.partial(delErr, PartialRenameMessage(spec, oldID, newID, reason))
}

// PartialRenameMessage tells the user the new record exists while the old one was not removed.
func PartialRenameMessage(spec record.KindSpec, oldID, newID, reason string) string {
	label := strings.ToLower(spec.Label)
	return fmt.Sprintf(
		"The new %s %s was saved, but the old %s %s could not be removed (%s). Both records now exist; please delete %s manually.",
		label, newID, label, oldID, reason, oldID,
	)
}

func (c *Coordinator) validate(kind record.Kind, req record.Map, rename bool) error {
	if rename {
		var flds []core.FieldError
		for _, f := range record.Spec(kind).RenameNeeds {
			if !req.Has(f) {
				flds = append(flds, core.FieldError{Field: f, Error: f + " is required to change the identifier"})
			}
		}
		if len(flds) > 0 {
			return core.NewValidationError(nil, flds...)
		}
	}
	if c.opts.Validate != nil {
		return c.opts.Validate(kind, req)
	}
	return nil
}

func (c *Coordinator) alert(mutationID string, spec record.KindSpec, oldID, newID, reason string) {
	if c.opts.Alerts == nil || len(c.opts.AlertRecipients) == 0 {
		return
	}
	c.opts.Alerts.SendMessages(&core.EmailMessage{
		To:           c.opts.AlertRecipients,
		Subject:      fmt.Sprintf("%s rename %s -> %s partially applied", spec.Label, oldID, newID),
		TemplateName: "rename_partial",
		TemplateData: map[string]interface{}{
			"Kind":       strings.ToLower(spec.Label),
			"NewID":      newID,
			"OldID":      oldID,
			"Reason":     reason,
			"MutationID": mutationID,
		},
	})
}
