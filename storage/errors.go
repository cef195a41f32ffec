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

import "errors"

var (
	// ErrNotFound is returned when an entity, connection or checkpoint is missing.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an email or profile URL already belongs
	// to another entity.
	ErrDuplicateKey = errors.New("duplicate key")

	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed is returned by repositories after Close.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery is returned for an empty query vector or incomplete
	// connection settings.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed wraps codec errors for stored records.
	ErrSerializationFailed = errors.New("serialization failed")
)
