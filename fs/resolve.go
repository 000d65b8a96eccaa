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
	"io"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/zlikavac32/grofs/pathspec"
)

type nodeKind int

const (
	dirKind nodeKind = iota
	dataKind
)

// resolved is the outcome of resolving one parsed path against the
// repository. It is rebuilt from scratch for every operation and never
// stored.
type resolved struct {
	spec  pathspec.Spec
	kind  nodeKind
	oid   plumbing.Hash
	mtime time.Time
	size  int64
}

// resolve turns a parsed path into a resolved node, consulting the
// repository as needed. Any kind of miss, including lower-level store
// failures, comes back as an error the caller maps to "no such entry".
func (r *grofsRoot) resolve(spec pathspec.Spec) (resolved, error) {
	res := resolved{spec: spec, mtime: r.started}

	if spec.RootChild == pathspec.Root || spec.Entry == pathspec.List {
		res.kind = dirKind
		return res, nil
	}

	switch spec.RootChild {
	case pathspec.Commits:
		return r.resolveCommit(spec, res)
	case pathspec.Blobs:
		return r.resolveBlob(spec, res)
	}

	logicHalt("unexpected root child %s for path %s", spec.RootChild, spec.Path())
	return res, pathspec.ErrNoEntry
}

func (r *grofsRoot) resolveCommit(spec pathspec.Spec, res resolved) (resolved, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(spec.OID()))
	if err != nil {
		return res, errors.Wrapf(err, "commit %s", spec.OID())
	}
	res.mtime = commit.Committer.When

	switch spec.Entry {
	case pathspec.ID:
		res.kind = dirKind
		res.oid = commit.Hash
		return res, nil
	case pathspec.Tree:
		res.kind = dirKind
		res.oid = commit.TreeHash
		return res, nil
	case pathspec.Parent:
		if len(commit.ParentHashes) == 0 {
			return res, pathspec.ErrNoEntry
		}
		res.kind = dataKind
		res.oid = commit.ParentHashes[0]
		res.size = pathspec.OIDLen
		return res, nil
	case pathspec.PathInGit:
		return r.resolveTreePath(spec, commit, res)
	}

	logicHalt("unexpected entry %s for path %s", spec.Entry, spec.Path())
	return res, pathspec.ErrNoEntry
}

func (r *grofsRoot) resolveTreePath(spec pathspec.Spec, commit *object.Commit, res resolved) (resolved, error) {
	tree, err := commit.Tree()
	if err != nil {
		return res, errors.Wrapf(err, "tree of commit %s", commit.Hash)
	}

	entry, err := tree.FindEntry(spec.TreePath())
	if err != nil {
		return res, errors.Wrapf(pathspec.ErrNoEntry, "path %s in commit %s", spec.TreePath(), commit.Hash)
	}
	res.oid = entry.Hash

	switch entry.Mode {
	case filemode.Dir:
		res.kind = dirKind
		return res, nil
	case filemode.Regular, filemode.Executable, filemode.Symlink:
		blob, err := r.repo.BlobObject(entry.Hash)
		if err != nil {
			return res, errors.Wrapf(err, "blob %s", entry.Hash)
		}
		res.kind = dataKind
		res.size = blob.Size
		return res, nil
	}

	logicHalt("unexpected tree entry mode %s (oid %s)", entry.Mode, entry.Hash)
	return res, pathspec.ErrNoEntry
}

func (r *grofsRoot) resolveBlob(spec pathspec.Spec, res resolved) (resolved, error) {
	blob, err := r.repo.BlobObject(plumbing.NewHash(spec.OID()))
	if err != nil {
		return res, errors.Wrapf(err, "blob %s", spec.OID())
	}
	res.kind = dataKind
	res.oid = blob.Hash
	res.size = blob.Size
	return res, nil
}

// fileContent materializes the bytes served for a data node. For the
// synthetic parent file that is the hex parent ID; everything else is
// blob content.
func (r *grofsRoot) fileContent(res resolved) ([]byte, error) {
	if res.spec.RootChild == pathspec.Commits && res.spec.Entry == pathspec.Parent {
		return []byte(res.oid.String()), nil
	}

	blob, err := r.repo.BlobObject(res.oid)
	if err != nil {
		return nil, errors.Wrapf(err, "blob %s", res.oid)
	}
	return readBlob(blob)
}

func readBlob(blob *object.Blob) ([]byte, error) {
	rd, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	return io.ReadAll(rd)
}
