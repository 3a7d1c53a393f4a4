package hubevent

import (
	"errors"

	"github.com/rbaliyan/hubevent/convert"
)

// ErrInvalidArgument is returned, wrapped with the offending parameter, when a
// required argument is missing. Nothing is registered when it is returned.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrConversion is wrapped by every conversion failure returned from a
// delivery. Use errors.As with *convert.ConversionError for the details.
var ErrConversion = convert.ErrConversion

// IsConversionError checks if an error is a conversion failure
func IsConversionError(err error) bool {
	return convert.IsConversionError(err)
}
