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
	"fmt"

	"github.com/poiesic/sprintly/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalEntity serializes an Entity to bytes.
func MarshalEntity(entity *core.Entity) []byte {
	buf := make([]byte, core.EntityMUS.Size(*entity))
	core.EntityMUS.Marshal(*entity, buf)
	return buf
}

// UnmarshalEntity deserializes an Entity from bytes.
func UnmarshalEntity(data []byte) (*core.Entity, error) {
	entity, _, err := core.EntityMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	normalizeEntity(&entity)
	return &entity, nil
}

// normalizeEntity restores the in-memory conventions the codec does not keep:
// absent collections are nil and timestamps are UTC.
func normalizeEntity(e *core.Entity) {
	if len(e.SectorFocus) == 0 {
		e.SectorFocus = nil
	}
	if len(e.StageFocus) == 0 {
		e.StageFocus = nil
	}
	if len(e.Tags) == 0 {
		e.Tags = nil
	}
	if len(e.Embedding) == 0 {
		e.Embedding = nil
	}
	if len(e.Metadata) == 0 {
		e.Metadata = nil
	}
	e.ConnectedOn = e.ConnectedOn.UTC()
	e.EnrichedAt = e.EnrichedAt.UTC()
	e.InsertedAt = e.InsertedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
}

// MarshalConnection serializes a Connection to bytes.
func MarshalConnection(conn *core.Connection) []byte {
	buf := make([]byte, core.ConnectionMUS.Size(*conn))
	core.ConnectionMUS.Marshal(*conn, buf)
	return buf
}

// UnmarshalConnection deserializes a Connection from bytes.
func UnmarshalConnection(data []byte) (*core.Connection, error) {
	conn, _, err := core.ConnectionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	conn.CreatedAt = conn.CreatedAt.UTC()
	return &conn, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	checkpoint.UpdatedAt = checkpoint.UpdatedAt.UTC()
	return &checkpoint, nil
}
