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


// Package storage defines the persistence interfaces for loglens.
//
// Two concerns are covered by separate interfaces:
//
//   - IssueStore: the per-issue knowledge base on the filesystem (raw
//     logs, parsed chunks, embedding cache, vector array, metadata),
//     implemented by storage/fs.
//   - SessionStore: per-issue question/answer history in an embedded
//     key-value database, implemented by storage/badger.
//
// Session store constructors return the interface so consumers never couple
// to a concrete backend:
//
//	store, err := fs.NewStore(rootDir)            // implements storage.IssueStore
//	sessions, err := badger.NewSessionStore(path) // returns storage.SessionStore
//
// Tests can substitute the in-memory session store:
//
//	sessions, err := badger.NewMemorySessionStore()
//
// All implementations must be safe for concurrent use; IssueStore callers
// additionally serialize writes to a single issue.
package storage
