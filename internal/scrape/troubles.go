package scrape

import "errors"

type (
	TroubleType int

	// Trouble wraps an error raised while processing a single source so
	// the item can be marked TROUBLED without aborting the whole run.
	Trouble struct {
		error
		tType TroubleType
	}
)

const (
	FETCH_FAILURE TroubleType = iota
	GENERATION_FAILURE
	STORAGE_FAILURE
	GENERIC_FAILURE
)

func newTrouble(err error) Trouble {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return Trouble{error: err, tType: FETCH_FAILURE}
	}

	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return Trouble{error: err, tType: STORAGE_FAILURE}
	}

	var generationErr *GenerationError
	if errors.As(err, &generationErr) {
		return Trouble{error: err, tType: GENERATION_FAILURE}
	}

	return Trouble{error: err, tType: GENERIC_FAILURE}
}

func (t *Trouble) Type() TroubleType { return t.tType }

// StorageError marks a persistence failure during item processing.
type StorageError struct{ Err error }

func (err *StorageError) Error() string { return "failed to persist insight: " + err.Err.Error() }
func (err *StorageError) Unwrap() error { return err.Err }

// GenerationError marks an AI completion failure during item processing.
type GenerationError struct{ Err error }

func (err *GenerationError) Error() string { return "failed to generate insight: " + err.Err.Error() }
func (err *GenerationError) Unwrap() error { return err.Err }
