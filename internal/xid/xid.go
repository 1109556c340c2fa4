package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a prefixed unique id, e.g. "tx-9f2c...".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
