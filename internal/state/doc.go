// Package state provides an in-memory session model with YAML snapshot
// persistence, used as the session provider when no other host is embedded.
package state

import "github.com/user/livectl/internal/types"

// Compile-time interface compliance check.
var _ types.SessionProvider = (*Song)(nil)
