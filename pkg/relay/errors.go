// Copyright 2024-2026 Aiku AI

package relay

import (
	"errors"
	"fmt"
)

// DeliveryError reports that an outbound send or edit was rejected by the
// destination platform.
type DeliveryError struct {
	Platform string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s rejected the message: %v", e.Platform, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// NotFoundError reports that the target of an edit or delete no longer
// exists. For deletes this is treated as success.
type NotFoundError struct {
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("message not found: %v", e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// FetchError reports that an attachment's bytes could not be retrieved.
// The text portion of the payload is still delivered.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch file: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
