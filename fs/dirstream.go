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
	"bytes"
	"context"
	"io"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	log "github.com/sirupsen/logrus"
)

// readdirBuffLen is the growth increment of the consumer's buffer.
const readdirBuffLen = 64

// emitFunc hands one entry name to the stream. It fails once the stream
// has been cancelled, and producers must stop when it does.
type emitFunc func(name string) error

// producer enumerates the entries of one directory variant. It runs on
// its own goroutine and must check ctx between expensive store calls.
type producer func(ctx context.Context, emit emitFunc) error

// dirStream is the consumer half of a directory listing. The producer
// goroutine writes NUL-terminated entry names into a pipe; the consumer
// splits them out of a growable buffer, one per Next call. Backpressure
// comes from the pipe: a producer that outruns the kernel's readdir
// slices blocks on write.
type dirStream struct {
	r      *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}

	buf []byte
	pos int

	// consumed counts bytes handed out, including each trailing NUL. It
	// only ever grows, giving every entry a strictly increasing offset
	// within this stream.
	consumed uint64

	name    string
	hasName bool
	srcDone bool
	closed  bool
}

func newDirStream(gen producer) *dirStream {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	s := &dirStream{
		r:      pr,
		cancel: cancel,
		done:   make(chan struct{}),
		buf:    make([]byte, 0, readdirBuffLen),
	}

	go func() {
		defer close(s.done)
		pw.CloseWithError(runProducer(ctx, pw, gen))
	}()

	return s
}

func runProducer(ctx context.Context, pw *io.PipeWriter, gen producer) error {
	emit := func(name string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf := make([]byte, 0, len(name)+1)
		buf = append(buf, name...)
		buf = append(buf, 0)
		_, err := pw.Write(buf)
		return err
	}

	if err := emit("."); err != nil {
		return err
	}
	if err := emit(".."); err != nil {
		return err
	}
	return gen(ctx, emit)
}

var _ = (fs.DirStream)((*dirStream)(nil))

func (s *dirStream) HasNext() bool {
	if !s.hasName {
		s.fill()
	}
	return s.hasName
}

// fill buffers pipe data until one complete name is available or the
// pipe is exhausted.
func (s *dirStream) fill() {
	for {
		if i := bytes.IndexByte(s.buf[s.pos:], 0); i >= 0 {
			if i == 0 {
				logicHalt("empty name in directory stream")
				s.pos++
				s.consumed++
				continue
			}
			s.name = string(s.buf[s.pos : s.pos+i])
			s.hasName = true
			s.pos += i + 1
			s.consumed += uint64(i + 1)
			return
		}

		if s.srcDone {
			return
		}

		s.compact()

		old := len(s.buf)
		s.buf = append(s.buf, make([]byte, readdirBuffLen)...)
		n, err := s.r.Read(s.buf[old:])
		s.buf = s.buf[:old+n]

		if err != nil {
			if err != io.EOF {
				log.WithError(err).Error("directory listing ended early")
			}
			s.srcDone = true
		}
	}
}

// compact left-shifts unread bytes so the buffer stays a small multiple
// of the largest single entry name.
func (s *dirStream) compact() {
	if s.pos == 0 {
		return
	}
	if s.pos == len(s.buf) {
		s.buf = s.buf[:0]
	} else {
		n := copy(s.buf, s.buf[s.pos:])
		s.buf = s.buf[:n]
	}
	s.pos = 0
}

func (s *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if !s.HasNext() {
		return fuse.DirEntry{}, syscall.EBADF
	}
	s.hasName = false
	return fuse.DirEntry{Name: s.name}, 0
}

// Close cancels the producer, unblocks any write it has in flight by
// closing the read half, and waits for it to exit.
func (s *dirStream) Close() {
	if s.closed {
		return
	}
	s.closed = true

	s.cancel()
	s.r.Close()
	<-s.done

	s.buf = nil
	s.pos = 0
	s.hasName = false
	s.srcDone = true
}
