package db

import "fmt"

type ExistsError struct {
	Dir string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("database already exists: %s", e.Dir)
}

type NotDbError struct {
	Dir string
}

func (e *NotDbError) Error() string {
	return fmt.Sprintf("not a database: %s", e.Dir)
}

// NotFoundError means no record version with that identity was ever
// committed.
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such record: %s", e.ID)
}

// ArchivedError means the record version was consumed by an earlier
// commit.  SupersededBy is empty when nothing replaced it.
type ArchivedError struct {
	ID           ID
	SupersededBy ID
}

func (e *ArchivedError) Error() string {
	if e.SupersededBy == "" {
		return fmt.Sprintf("record archived: %s", e.ID)
	}
	return fmt.Sprintf("record archived: %s superseded by %s", e.ID, e.SupersededBy)
}
