// Package directory verifies credentials against the external user
// directory. The directory only answers bind success or failure; user
// records themselves live in the local store.
package directory

import "context"

// Binder checks a (username, password) pair against the directory. Any
// connectivity failure is treated as an authentication failure: the caller
// falls through to the local credential check, never errors out.
type Binder interface {
	Bind(ctx context.Context, username, password string) bool
}
