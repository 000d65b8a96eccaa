// Copyright 2016 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fs

import (
	"context"
	"fmt"
	"strings"
	"syscall"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticProducer(names ...string) producer {
	return func(ctx context.Context, emit emitFunc) error {
		for _, name := range names {
			if err := emit(name); err != nil {
				return err
			}
		}
		return nil
	}
}

// endlessProducer emits numbered names until the stream is cancelled.
func endlessProducer(ctx context.Context, emit emitFunc) error {
	for i := 0; ; i++ {
		if err := emit(fmt.Sprintf("entry-%08d", i)); err != nil {
			return err
		}
	}
}

func drain(t *testing.T, s *dirStream) []string {
	t.Helper()
	var names []string
	for s.HasNext() {
		entry, errno := s.Next()
		require.Equal(t, syscall.Errno(0), errno)
		names = append(names, entry.Name)
	}
	return names
}

func TestDirStreamYieldsDotsThenEntriesInOrder(t *testing.T) {
	defer leaktest.Check(t)()

	s := newDirStream(staticProducer("a", "b", "c"))
	defer s.Close()

	assert.Equal(t, []string{".", "..", "a", "b", "c"}, drain(t, s))
	assert.False(t, s.HasNext())
}

func TestDirStreamNamesLongerThanBufferIncrement(t *testing.T) {
	defer leaktest.Check(t)()

	long := strings.Repeat("x", 5*readdirBuffLen+7)
	s := newDirStream(staticProducer("short", long, "tail"))
	defer s.Close()

	assert.Equal(t, []string{".", "..", "short", long, "tail"}, drain(t, s))
}

func TestDirStreamOffsetsStrictlyIncrease(t *testing.T) {
	defer leaktest.Check(t)()

	s := newDirStream(staticProducer("a", "bb", "ccc"))
	defer s.Close()

	var last uint64
	for s.HasNext() {
		_, errno := s.Next()
		require.Equal(t, syscall.Errno(0), errno)
		require.Greater(t, s.consumed, last)
		last = s.consumed
	}
	// ".\0..\0a\0bb\0ccc\0"
	assert.Equal(t, uint64(2+3+2+3+4), s.consumed)
}

func TestDirStreamEarlyCloseStopsProducer(t *testing.T) {
	defer leaktest.Check(t)()

	s := newDirStream(endlessProducer)

	for i := 0; i < 3; i++ {
		require.True(t, s.HasNext())
		_, errno := s.Next()
		require.Equal(t, syscall.Errno(0), errno)
	}
	s.Close()
}

func TestDirStreamCloseWithoutReading(t *testing.T) {
	defer leaktest.Check(t)()

	s := newDirStream(endlessProducer)
	s.Close()
}

func TestDirStreamCloseIsIdempotent(t *testing.T) {
	defer leaktest.Check(t)()

	s := newDirStream(staticProducer("a"))
	s.Close()
	s.Close()
}

func TestDirStreamProducerFailureTruncatesListing(t *testing.T) {
	defer leaktest.Check(t)()

	boom := errors.New("store went away")
	gen := func(ctx context.Context, emit emitFunc) error {
		if err := emit("survivor"); err != nil {
			return err
		}
		return boom
	}

	s := newDirStream(gen)
	defer s.Close()

	assert.Equal(t, []string{".", "..", "survivor"}, drain(t, s))
	assert.False(t, s.HasNext())
}

func TestDirStreamNextAfterExhaustion(t *testing.T) {
	defer leaktest.Check(t)()

	s := newDirStream(staticProducer())
	defer s.Close()

	drain(t, s)
	_, errno := s.Next()
	assert.Equal(t, syscall.EBADF, errno)
}

func TestDirStreamResumesAcrossPartialDrains(t *testing.T) {
	defer leaktest.Check(t)()

	names := make([]string, 20)
	for i := range names {
		names[i] = fmt.Sprintf("n-%02d", i)
	}

	s := newDirStream(staticProducer(names...))
	defer s.Close()

	var got []string
	for i := 0; i < 5 && s.HasNext(); i++ {
		entry, errno := s.Next()
		require.Equal(t, syscall.Errno(0), errno)
		got = append(got, entry.Name)
	}
	got = append(got, drain(t, s)...)

	want := append([]string{".", ".."}, names...)
	assert.Equal(t, want, got)
}
