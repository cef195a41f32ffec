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

import "errors"

// Domain validation errors
var (
	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidConnection indicates a Connection failed validation.
	ErrInvalidConnection = errors.New("invalid connection")

	// ErrEmptyIdentity indicates an entity has no name, email or profile URL.
	ErrEmptyIdentity = errors.New("entity needs a name, email or profile URL")

	// ErrInvalidRole indicates an unknown Role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidConfidence indicates a confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrInvalidCheckSize indicates check-size-min is greater than check-size-max.
	ErrInvalidCheckSize = errors.New("check size minimum exceeds maximum")

	// ErrInvalidEmbedding indicates an embedding of the wrong length.
	ErrInvalidEmbedding = errors.New("embedding has wrong dimension")

	// ErrSelfConnection indicates a connection whose endpoints are equal.
	ErrSelfConnection = errors.New("connection endpoints must differ")

	// ErrInvalidStrength indicates a connection strength outside [0,1].
	ErrInvalidStrength = errors.New("strength must be between 0 and 1")
)
