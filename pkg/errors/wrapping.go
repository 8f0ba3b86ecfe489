package errors

import (
	"fmt"
)

// Wrapf annotates err with a formatted operation name. The result falls in
// the same category as err, as reported by Kind, so callers further up can
// still map it to a status code. Untyped errors become a PermanentError.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	op := fmt.Sprintf(format, args...)

	switch Kind(err) {
	case "canceled":
		return NewCanceled(op, err)
	case "temporary":
		return NewTemporary(op, err)
	case "unauthorized":
		return NewUnauthorizedWithCause(op, err)
	case "not_found":
		var nfe *NotFoundError
		As(err, &nfe)
		return NewNotFoundWithCause(nfe.resource, nfe.id, err)
	case "invalid_input":
		var iie *InvalidInputError
		As(err, &iie)
		return NewInvalidInputWithCause(iie.field, op, err)
	default:
		return NewPermanent(op, err)
	}
}
