package badger

import (
	"encoding/binary"
	"time"

	"github.com/rashmirrout/loglens/core"
)

// Key prefixes for different data types
const (
	sessionMessagePrefix = "sesmsg"
	sessionMessageIDSeq  = "sesmsgseq"
)

// makeSessionPrefix generates the key prefix covering all messages of an
// issue's session history.
func makeSessionPrefix(issueID string) []byte {
	return []byte(sessionMessagePrefix + ":" + issueID + ":")
}

// makeSessionMessageKey generates a composite key for a session message.
// Format: prefix:issueID:timestamp:id, with timestamp and id written in
// BigEndian so lexicographic key order matches chronological order.
func makeSessionMessageKey(issueID string, timestamp time.Time, id core.ID) []byte {
	prefix := makeSessionPrefix(issueID)
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
