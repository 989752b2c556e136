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


// Package ai defines the capability interfaces for embedding and text
// generation providers and the registry that maps model identifiers to
// concrete implementations.
//
// Model identifiers follow a prefix convention:
//   - "gemini:" and bare "gemini-" names for Google Gemini (cloud)
//   - "local:" for a local OpenAI-compatible server
//   - "openrouter:" for the OpenRouter gateway
//   - "azure:" for an Azure OpenAI deployment
//
// Provider failures are reported as *Error with a Transient or Permanent
// kind so callers can decide between retrying and switching to a fallback
// model without inspecting provider-specific error strings.
package ai
