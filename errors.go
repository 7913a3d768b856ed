package custody

import (
	"fmt"

	"github.com/t7a/custody/db"
)

// AuthorizationError means the caller is not allowed to perform the
// action on the record.
type AuthorizationError struct {
	Party  db.Party
	Action string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: %s not authorized: %s", e.Action, e.Party, e.Reason)
}

// PreconditionError means a business rule of the action is not met.
type PreconditionError struct {
	Action string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Reason)
}

// DuplicateApprovalError means the party already approved the proposal.
type DuplicateApprovalError struct {
	Party    db.Party
	Proposal db.ID
}

func (e *DuplicateApprovalError) Error() string {
	return fmt.Sprintf("approve: %s already approved %s", e.Party, e.Proposal)
}

// StaleReferenceError means the action addressed a record version
// that is archived or never existed.
type StaleReferenceError struct {
	ID           db.ID
	SupersededBy db.ID
}

func (e *StaleReferenceError) Error() string {
	if e.SupersededBy == "" {
		return fmt.Sprintf("stale reference: %s", e.ID)
	}
	return fmt.Sprintf("stale reference: %s superseded by %s", e.ID, e.SupersededBy)
}

// stale translates store lookup failures into StaleReferenceError.
func stale(err error) error {
	switch e := err.(type) {
	case *db.ArchivedError:
		return &StaleReferenceError{ID: e.ID, SupersededBy: e.SupersededBy}
	case *db.NotFoundError:
		return &StaleReferenceError{ID: e.ID}
	}
	return err
}
