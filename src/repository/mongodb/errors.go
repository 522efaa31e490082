package mongodb

import (
	"errors"
	"fmt"

	"github.com/theleywin/prolinka/src/errs"
	"go.mongodb.org/mongo-driver/mongo"
)

// readError maps a missing document to ENOTFOUND and anything else to an
// internal error.
func readError(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.Wrap(errs.ENOTFOUND, err, what+" not found")
	}
	return errs.Wrap(errs.EINTERNAL, err, fmt.Sprintf("failed to load %s", what))
}

// writeError maps unique index violations to ECONFLICT.
func writeError(err error, what string) error {
	if mongo.IsDuplicateKeyError(err) {
		return errs.Wrap(errs.ECONFLICT, err, "duplicate "+what)
	}
	return errs.Wrap(errs.EINTERNAL, err, fmt.Sprintf("failed to write %s", what))
}
