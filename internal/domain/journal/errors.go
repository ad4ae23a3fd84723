package journal

import "github.com/neuronek/backend/internal/domain/shared"

// Journal domain errors
var (
	ErrIngestionNotFound = shared.NewDomainError("INGESTION_NOT_FOUND", "Ingestion not found")
	ErrStashNotFound     = shared.NewDomainError("STASH_NOT_FOUND", "Stash not found")
	ErrStashInsufficient = shared.NewDomainError("STASH_INSUFFICIENT", "Stash does not hold enough of the substance")
	ErrStashMismatch     = shared.NewDomainError("STASH_SUBSTANCE_MISMATCH", "Stash holds a different substance")
	ErrStashExpired      = shared.NewDomainError("STASH_EXPIRED", "Stash has expired")
	ErrIngestionInFuture = shared.NewDomainError("INGESTION_IN_FUTURE", "Ingestion time cannot be more than 24 hours in the future")
	ErrNoPhaseData       = shared.NewDomainError(shared.ErrInvalidState.Code, "Route of administration has no phase data to analyze")
)

// MaxNotesLength bounds free-text notes after sanitizing
const MaxNotesLength = 2000

func validateNotes(notes string) error {
	if len([]rune(notes)) > MaxNotesLength {
		return shared.NewDomainError("INVALID_NOTES", "Notes cannot exceed 2000 characters")
	}
	return nil
}
