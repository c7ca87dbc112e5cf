package services

import "errors"

// ErrForbidden is returned when an authenticated user lacks rights over the
// requested resource.
var ErrForbidden = errors.New("forbidden")
