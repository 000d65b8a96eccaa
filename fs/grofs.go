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

// Package fs exposes a local git repository as a read-only FUSE
// filesystem. The mount has two top-level directories: commits/, one
// directory per commit object, and blobs/, one file per blob object.
package fs

import (
	"context"
	"os"
	"syscall"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/zlikavac32/grofs/pathspec"
)

// oidXattr exposes the git object ID of a node, where it has one.
const oidXattr = "user.grofs.oid"

// grofsRoot is the root of the mounted filesystem. It owns the two
// process-wide pieces of state: the opened repository and the mount
// start time used as mtime for nodes that are not commit-derived.
type grofsRoot struct {
	grofsNode

	repo    *git.Repository
	started time.Time

	// Fallback ownership for requests that carry no caller.
	owner fuse.Owner
}

// grofsNode is a single entry in the mount. It carries only the parsed
// path; everything else is re-resolved against the repository on every
// operation.
type grofsNode struct {
	fs.Inode

	root *grofsRoot
	spec pathspec.Spec
}

// NewRoot returns the root node for a filesystem projecting repo.
func NewRoot(repo *git.Repository) *grofsRoot {
	r := &grofsRoot{
		repo:    repo,
		started: time.Now(),
		owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
	}
	r.grofsNode.root = r
	r.grofsNode.spec = pathspec.Spec{RootChild: pathspec.Root, Entry: pathspec.None}
	return r
}

func (r *grofsRoot) applyAttr(ctx context.Context, res resolved, attr *fuse.Attr) {
	attr.Owner = r.owner
	if fc, ok := ctx.(*fuse.Context); ok {
		attr.Owner = fc.Caller.Owner
	}

	switch res.kind {
	case dirKind:
		attr.Mode = syscall.S_IFDIR | 0555
		attr.Nlink = 2
	case dataKind:
		attr.Mode = syscall.S_IFREG | 0444
		attr.Nlink = 1
		attr.Size = uint64(res.size)
	default:
		logicHalt("unexpected node kind %d for path %s", res.kind, res.spec.Path())
	}

	mtime := res.mtime
	attr.SetTimes(&mtime, &mtime, nil)
}

var _ = (fs.NodeGetattrer)((*grofsNode)(nil))

func (n *grofsNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	res, err := n.root.resolve(n.spec)
	if err != nil {
		return syscall.ENOENT
	}
	n.root.applyAttr(ctx, res, &out.Attr)
	return 0
}

var _ = (fs.NodeLookuper)((*grofsNode)(nil))

func (n *grofsNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child, err := n.spec.Child(name)
	if err != nil {
		return nil, syscall.ENOENT
	}

	res, err := n.root.resolve(child)
	if err != nil {
		return nil, syscall.ENOENT
	}
	n.root.applyAttr(ctx, res, &out.Attr)

	mode := uint32(syscall.S_IFDIR)
	if res.kind == dataKind {
		mode = syscall.S_IFREG
	}

	ch := n.NewInode(ctx, &grofsNode{root: n.root, spec: child}, fs.StableAttr{Mode: mode})
	return ch, 0
}

var _ = (fs.NodeOpendirer)((*grofsNode)(nil))

func (n *grofsNode) Opendir(ctx context.Context) syscall.Errno {
	res, err := n.root.resolve(n.spec)
	if err != nil {
		return syscall.ENOENT
	}
	if res.kind != dirKind {
		return syscall.ENOTDIR
	}
	return 0
}

var _ = (fs.NodeReaddirer)((*grofsNode)(nil))

func (n *grofsNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	res, err := n.root.resolve(n.spec)
	if err != nil {
		return nil, syscall.ENOENT
	}
	if res.kind != dirKind {
		return nil, syscall.ENOTDIR
	}

	gen, err := n.root.listing(res)
	if err != nil {
		return nil, syscall.ENOENT
	}
	return newDirStream(gen), 0
}

var _ = (fs.NodeOpener)((*grofsNode)(nil))

func (n *grofsNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}

	res, err := n.root.resolve(n.spec)
	if err != nil {
		return nil, 0, syscall.ENOENT
	}
	if res.kind == dirKind {
		return nil, 0, syscall.EISDIR
	}

	data, err := n.root.fileContent(res)
	if err != nil {
		return nil, 0, syscall.ENOENT
	}

	// Content under an object ID never changes, so the kernel may keep
	// its page cache across opens.
	return &fileHandle{data: data}, fuse.FOPEN_KEEP_CACHE, 0
}

var _ = (fs.NodeGetxattrer)((*grofsNode)(nil))

func (n *grofsNode) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	if attr != oidXattr {
		return 0, syscall.ENODATA
	}

	res, err := n.root.resolve(n.spec)
	if err != nil || res.oid.IsZero() {
		return 0, syscall.ENODATA
	}

	value := res.oid.String()
	if len(dest) < len(value) {
		return uint32(len(value)), syscall.ERANGE
	}
	return uint32(copy(dest, value)), 0
}

var _ = (fs.NodeListxattrer)((*grofsNode)(nil))

func (n *grofsNode) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	res, err := n.root.resolve(n.spec)
	if err != nil || res.oid.IsZero() {
		return 0, 0
	}

	value := oidXattr + "\x00"
	if len(dest) < len(value) {
		return uint32(len(value)), syscall.ERANGE
	}
	return uint32(copy(dest, value)), 0
}
