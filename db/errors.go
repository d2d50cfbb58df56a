package db

import "errors"

// Not-found conditions are surfaced to callers as-is: silently treating
// an unknown pagination anchor as "no anchor" would corrupt keyset
// pagination, so resolution failures always abort the query.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrTagNotFound  = errors.New("tag not found")
)
