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


package core

import (
	"fmt"
)

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - At least one of Name, FirstName/LastName, Email or LinkedInURL is set
//   - Role must be valid
//   - Confidence must be within [0,1]
//   - CheckSizeMin must not exceed CheckSizeMax when both are set
//
// NOT validated (populated by ingestion):
//   - Embedding (nil until embedded; dimension checked by ValidateEmbedding)
//   - ID (0 is valid before the entity is stored)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if entity.DisplayName() == "" && entity.Email == "" && entity.LinkedInURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyIdentity)
	}

	if err := ValidateRole(entity.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	if entity.Confidence < 0 || entity.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrInvalidConfidence)
	}

	if entity.CheckSizeMin != nil && entity.CheckSizeMax != nil && *entity.CheckSizeMin > *entity.CheckSizeMax {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrInvalidCheckSize)
	}

	return nil
}

// ValidateRole validates that a Role has a known value.
func ValidateRole(role Role) error {
	switch role {
	case RoleFounder, RoleInvestor, RoleEnabler, RoleOther:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidRole, role)
}

// ValidateEmbedding checks that a vector is either absent or exactly dim long.
// A dim of 0 disables the length check.
func ValidateEmbedding(vector []float32, dim int) error {
	if len(vector) == 0 || dim == 0 {
		return nil
	}
	if len(vector) != dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidEmbedding, dim, len(vector))
	}
	return nil
}

// ValidateConnection validates a Connection.
func ValidateConnection(conn *Connection) error {
	if conn == nil {
		return fmt.Errorf("%w: connection is nil", ErrInvalidConnection)
	}
	if conn.Source == 0 || conn.Target == 0 {
		return fmt.Errorf("%w: endpoints must be stored entities", ErrInvalidConnection)
	}
	if conn.Source == conn.Target {
		return fmt.Errorf("%w: %w", ErrInvalidConnection, ErrSelfConnection)
	}
	if conn.Type == "" {
		return fmt.Errorf("%w: relationship type is empty", ErrInvalidConnection)
	}
	if conn.Strength < 0 || conn.Strength > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConnection, ErrInvalidStrength)
	}
	return nil
}
