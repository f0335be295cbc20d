package ledger

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a random UUID, or a time-based id when the system entropy
// source is unavailable. The fallback is only locally unique.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID(time.Now())
	}
	return id.String()
}

// fallbackID is the base36 millisecond clock followed by seven random base36
// characters.
func fallbackID(now time.Time) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	for i := 0; i < 7; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return b.String()
}
