package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/chatforge/core"
)

// Key prefixes for different data types
const (
	conversationPrefix        = "convrec"
	conversationSessionPrefix = "convsess"
	conversationIDSeq         = "convrecseq"
	messagePrefix             = "msgrec"
	messageConvPrefix         = "msgconv"
	messageIDSeq              = "msgrecseq"
	usagePrefix               = "usgrec"
	usageIDSeq                = "usgrecseq"
	documentStatusPrefix      = "docstat"
)

// makeConversationKey generates a key for a conversation by ID.
func makeConversationKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", conversationPrefix, id))
}

// makeConversationSessionKey generates a lookup key for the
// (chatbot, session) pair index.
func makeConversationSessionKey(chatbotID, sessionID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", conversationSessionPrefix, chatbotID, sessionID))
}

// makeMessageKey generates a key for a message by ID.
func makeMessageKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", messagePrefix, id))
}

// makeMessageConvKey generates a composite key for the per-conversation
// message index. Format: prefix:conversationID:timestamp:messageID
func makeMessageConvKey(conversationID core.ID, createdAt time.Time, messageID core.ID) []byte {
	prefix := []byte(messageConvPrefix + ":")
	buf := make([]byte, len(prefix)+24)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(conversationID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(messageID))
	return buf
}

// makePartialMessageConvKey generates a partial key covering all messages of
// one conversation. Format: prefix:conversationID
func makePartialMessageConvKey(conversationID core.ID) []byte {
	prefix := []byte(messageConvPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(conversationID))
	return buf
}

// makeUsageKey generates a composite key for the usage time index.
// Format: prefix:timestamp:seq
func makeUsageKey(createdAt time.Time, seq uint64) []byte {
	prefix := []byte(usagePrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makePartialUsageKey generates a partial key for usage range queries.
func makePartialUsageKey(createdAt time.Time) []byte {
	prefix := []byte(usagePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	return buf
}

// makeDocumentStatusKey generates a key for a document's ingestion status.
func makeDocumentStatusKey(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentStatusPrefix, documentID))
}
