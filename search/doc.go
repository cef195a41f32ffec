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


// Package search finds people in the network that fit a free-text query.
//
// The Searcher type implements a hybrid search that combines:
//   - Semantic search using vector embeddings of the query and each entity
//   - Categorical filters on role, sector, stage and location
//   - Rule-based factor scoring from the match package
//
// Vector search over-fetches candidates so that ranking by the blended match
// score can reorder them before results are truncated.
package search
