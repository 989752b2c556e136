// Copyright 2026 Rashmi Rout
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

// Error taxonomy for the knowledge base engine. These are fatal and surfaced
// to the caller immediately; transient provider failures are handled inside
// the ai and rag packages and never reach callers as these sentinels.
var (
	// ErrNotFound indicates a missing issue, chunk file, or vector array.
	ErrNotFound = errors.New("not found")

	// ErrEmptyCorpus indicates a build was requested for an issue with no chunks.
	ErrEmptyCorpus = errors.New("no chunks found for issue")

	// ErrNotBuilt indicates persisted vectors were requested before any build.
	ErrNotBuilt = errors.New("embeddings not built")

	// ErrInvalidConfiguration indicates an unknown model identifier with no
	// credentials, or missing credentials for a resolved provider.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
