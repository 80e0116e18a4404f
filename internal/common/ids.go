package common

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewULID returns a new lexicographically sortable id (26 chars).
func NewULID() string {
	return ulid.Make().String()
}

// NewMessageID returns a client-side message id of the form msg_<unix-ms>_<random>.
// ulid.Make uses monotonic entropy, so ids minted in the same millisecond still differ.
func NewMessageID() string {
	id := ulid.Make()
	return fmt.Sprintf("msg_%d_%s", id.Time(), strings.ToLower(id.String()[10:]))
}

func NewRequestID() string {
	return uuid.NewString()
}
