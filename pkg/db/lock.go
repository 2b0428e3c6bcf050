// Copyright 2026 The TSI Authors.
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

package db

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// PrefixLock is the advisory file lock the orchestrator holds over an
// install prefix for the duration of a single invocation (spec.md §4.7,
// §5 "Advisory file lock on the install prefix").
type PrefixLock struct {
	f *os.File
}

// Lock opens (creating if needed) <prefix>/.tsi.lock and takes a
// non-blocking exclusive advisory lock on it. It returns
// ErrLockContended if another process already holds it.
func Lock(prefix string) (*PrefixLock, error) {
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(prefix, ".tsi.lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrLockContended
		}
		return nil, err
	}

	return &PrefixLock{f: f}, nil
}

// Unlock releases the lock and closes the underlying file.
func (l *PrefixLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	return l.f.Close()
}
