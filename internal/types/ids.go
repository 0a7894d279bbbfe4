// internal/types/ids.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

type ConnID string
type JobID string

func NewConnID() ConnID {
	return ConnID(uuid.New().String())
}

func NewJobID() JobID {
	return JobID(uuid.New().String())
}

// ShortID returns the first segment of a uuid-style ID, for log lines.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
