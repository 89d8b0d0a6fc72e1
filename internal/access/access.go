// Package access decides whether an actor may mutate an owned record.
package access

import "github.com/videotube/backend/internal/apperr"

// Owned is implemented by records with a single owner.
type Owned interface {
	Owner() string
}

// Owner adapts a plain owner id to Owned.
type Owner string

// Owner returns the id itself.
func (o Owner) Owner() string { return string(o) }

// CanMutate reports whether actor may change record. Additional owners, such as
// the owner of the video a comment belongs to, are also granted access.
func CanMutate(actor string, record Owned, also ...Owned) bool {
	if actor == "" {
		return false
	}
	if record != nil && record.Owner() == actor {
		return true
	}
	for _, o := range also {
		if o != nil && o.Owner() == actor {
			return true
		}
	}
	return false
}

// Check returns an authorization error naming what when actor may not mutate record.
// The record must already have been loaded, so a missing record is reported as
// not found by the caller before Check runs.
func Check(actor, what string, record Owned, also ...Owned) error {
	if CanMutate(actor, record, also...) {
		return nil
	}
	return apperr.Forbidden("you are not allowed to modify this " + what)
}
