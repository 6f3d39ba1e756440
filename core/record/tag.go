package record

// Tag records how sure we are that a locally removed record is gone from the backend.
type Tag string

const (
	// Confirmed: the backend acknowledged the delete.
	Confirmed Tag = "confirmed"
	// PendingDelete: a delete request is in flight; the record is still shown.
	PendingDelete Tag = "pending_delete"
	// DeleteFailed: the backend did not confirm, the record was removed locally anyway.
	DeleteFailed Tag = "delete_failed"
)

// Assumed reports whether the record is only assumed to be gone.
func (t Tag) Assumed() bool { return t == DeleteFailed }
