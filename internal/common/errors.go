// Copyright 2026 Tangle Authors
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

package common

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrExists              = errors.New("already exists")
	ErrDuplicateConnection = errors.New("connection already exists between notes")
	ErrSameNote            = errors.New("connection endpoints must be distinct notes")
	ErrStorageWrite        = errors.New("storage write failed")
	ErrStorageTimeout      = errors.New("storage operation timed out")
	ErrClosed              = errors.New("store is closed")
	ErrInvalidSnapshot     = errors.New("invalid snapshot document")
)
