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


// Package match scores entities against free-text queries.
//
// Scoring happens in two steps:
//   - ComputeFactors rates an entity along independent axes (sector, stage,
//     geography, check size). A factor is only present when the entity has
//     the underlying attribute.
//   - Score blends vector similarity (40%) with the weighted average of the
//     present factors (60%). Traction and graph proximity always contribute
//     fixed baselines.
//
// Rank applies Score to a set of retrieval candidates and orders them.
// Everything in this package is pure and safe for concurrent use.
package match
