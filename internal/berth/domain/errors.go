package domain

import "errors"

// Expected, user-facing failures. Handlers map each to a distinct HTTP
// outcome; none of them is retried automatically.
var (
	// ErrValidation reports missing or malformed input.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicate reports a stack name or domain collision.
	ErrDuplicate = errors.New("already exists")

	// ErrBadCredentials reports a failed login. Deliberately carries no
	// detail about which step failed.
	ErrBadCredentials = errors.New("invalid credentials")

	// ErrForbidden reports insufficient role or non-ownership. Distinct from
	// ErrNotFound so access denial never masquerades as absence, and carries
	// no information about other users' resources.
	ErrForbidden = errors.New("access denied")

	// ErrQuotaExceeded reports a deploy blocked by the container ceiling.
	ErrQuotaExceeded = errors.New("container limit reached")

	// ErrNotFound reports an absent user, domain or deployment.
	ErrNotFound = errors.New("not found")
)

// Upstream failures (controller unreachable, timed out, or reporting its
// own error) are represented by *cluster.Error, produced only at the
// gateway boundary.
