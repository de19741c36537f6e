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


// Package ingestion turns uploaded documents into searchable vectors.
//
// For each document the pipeline processes the raw bytes into chunks,
// embeds the chunk texts, and upserts them into the tenant's namespace in
// the vector store. Re-ingesting a document first removes its existing
// vectors, so the operation is idempotent. Every document's progress is
// tracked in a status repository; a failing document marks its own status
// failed without aborting the rest of the batch.
package ingestion
