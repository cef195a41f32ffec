package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/sprintly/core"
)

// Key prefixes for different data types
const (
	entityPrefix      = "ent:"
	entityEmailPrefix = "entem:"
	entityURLPrefix   = "entur:"
	entityIDSeq       = "entseq"

	connectionPrefix      = "conn:"
	connectionIndexPrefix = "conni:"

	graphNodePrefix = "gnode:"
	graphAdjPrefix  = "gadj:"
)

// appendIDs writes ids after prefix in BigEndian order so lexicographic
// key order matches numeric ID order.
func appendIDs(prefix string, ids ...core.ID) []byte {
	buf := make([]byte, len(prefix)+8*len(ids))
	offset := copy(buf, prefix)
	for _, id := range ids {
		binary.BigEndian.PutUint64(buf[offset:], uint64(id))
		offset += 8
	}
	return buf
}

// idAt reads the BigEndian ID at position pos (in IDs) after prefix.
func idAt(key []byte, prefix string, pos int) core.ID {
	offset := len(prefix) + 8*pos
	if len(key) < offset+8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[offset:]))
}

// makeEntityKey generates a key for an entity by ID.
// Format: prefix:id
func makeEntityKey(id core.ID) []byte {
	return appendIDs(entityPrefix, id)
}

// makeEmailKey generates the unique index key for an email.
// Format: prefix:hash(lower(email))
func makeEmailKey(email string) []byte {
	return appendIDs(entityEmailPrefix, core.IdentityKey(email))
}

// makeURLKey generates the unique index key for a profile URL.
// Format: prefix:hash(lower(url))
func makeURLKey(url string) []byte {
	return appendIDs(entityURLPrefix, core.IdentityKey(url))
}

// makeConnectionKey generates the primary key for a connection.
// Format: prefix:source:target
func makeConnectionKey(source, target core.ID) []byte {
	return appendIDs(connectionPrefix, source, target)
}

// makeConnectionIndexKey indexes a connection under one of its endpoints.
// Format: prefix:endpoint:source:target
func makeConnectionIndexKey(endpoint, source, target core.ID) []byte {
	return appendIDs(connectionIndexPrefix, endpoint, source, target)
}

// makeGraphNodeKey generates the key for a graph node.
func makeGraphNodeKey(id core.ID) []byte {
	return appendIDs(graphNodePrefix, id)
}

// makeGraphAdjKey generates an adjacency key. Edges are stored under both
// endpoints so traversal ignores direction; the relationship type keeps
// differently typed edges between the same pair apart.
// Format: prefix:from:to:type
func makeGraphAdjKey(from, to core.ID, relType string) []byte {
	return append(appendIDs(graphAdjPrefix, from, to), relType...)
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}
