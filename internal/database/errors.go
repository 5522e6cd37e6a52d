package database

import "errors"

// Sentinel errors for catalog and share-graph violations. Callers match
// them with errors.Is; handler code maps them to HTTP statuses.
var (
	// ErrNotFound indicates an id or username that does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a duplicate media path or duplicate username.
	ErrConflict = errors.New("already exists")

	// ErrSelfShare indicates an attempt to share a gallery with its owner.
	ErrSelfShare = errors.New("cannot share a gallery with its owner")

	// ErrAlreadyShared indicates a duplicate share edge.
	ErrAlreadyShared = errors.New("gallery already shared with this user")

	// ErrNotShared indicates removal of a share edge that does not exist.
	ErrNotShared = errors.New("share not found")

	// ErrUnknownUser indicates a grantee that is neither the operator
	// account nor a stored user.
	ErrUnknownUser = errors.New("user not found")

	// ErrInvalidInput indicates a missing or malformed argument.
	ErrInvalidInput = errors.New("invalid input")
)
