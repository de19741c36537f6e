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


package vector

import "errors"

var (
	// ErrNotFound indicates the requested collection or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch indicates a vector's dimension does not match the
	// collection's configured dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrDeleteFailed indicates all delete strategies were exhausted.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrBackendRequired is returned when a backend is not provided.
	ErrBackendRequired = errors.New("backend required")

	// ErrEmptyNamespace is returned when an operation is attempted without a
	// namespace. The namespace is the sole tenant-isolation boundary, so no
	// read or write may omit it.
	ErrEmptyNamespace = errors.New("namespace required")

	// ErrInvalidDimension is returned when the configured dimension is not positive.
	ErrInvalidDimension = errors.New("dimension must be positive")
)
