// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/poiesic/chatforge/core"
)

// MarshalID serializes an ID to 8 bytes, big endian.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) < 8 {
		return 0, fmt.Errorf("%w: id needs 8 bytes, got %d", ErrSerializationFailed, len(data))
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

// MarshalConversation serializes a Conversation to bytes.
func MarshalConversation(conversation *core.Conversation) ([]byte, error) {
	return marshal(conversation)
}

// UnmarshalConversation deserializes a Conversation from bytes.
func UnmarshalConversation(data []byte) (*core.Conversation, error) {
	return unmarshal[core.Conversation](data)
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(message *core.Message) ([]byte, error) {
	return marshal(message)
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	return unmarshal[core.Message](data)
}

// MarshalUsageRecord serializes a UsageRecord to bytes.
func MarshalUsageRecord(record *core.UsageRecord) ([]byte, error) {
	return marshal(record)
}

// UnmarshalUsageRecord deserializes a UsageRecord from bytes.
func UnmarshalUsageRecord(data []byte) (*core.UsageRecord, error) {
	return unmarshal[core.UsageRecord](data)
}

// MarshalDocumentStatus serializes a DocumentStatus to bytes.
func MarshalDocumentStatus(status *core.DocumentStatus) ([]byte, error) {
	return marshal(status)
}

// UnmarshalDocumentStatus deserializes a DocumentStatus from bytes.
func UnmarshalDocumentStatus(data []byte) (*core.DocumentStatus, error) {
	return unmarshal[core.DocumentStatus](data)
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}
