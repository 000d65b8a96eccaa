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

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/zlikavac32/grofs/pathspec"
)

// listing picks the entry producer for a resolved directory. The
// producer owns a copy of everything it needs; the resolved node itself
// is not retained.
func (r *grofsRoot) listing(res resolved) (producer, error) {
	switch {
	case res.spec.RootChild == pathspec.Root:
		return listRoot, nil
	case res.spec.RootChild == pathspec.Commits && res.spec.Entry == pathspec.List:
		return r.listCommits, nil
	case res.spec.RootChild == pathspec.Blobs && res.spec.Entry == pathspec.List:
		return r.listBlobs, nil
	case res.spec.RootChild == pathspec.Commits && res.spec.Entry == pathspec.ID:
		return r.listCommitDir(res.oid), nil
	case res.spec.Entry == pathspec.Tree || res.spec.Entry == pathspec.PathInGit:
		return r.listTree(res.oid), nil
	}

	logicHalt("no listing for path %s", res.spec.Path())
	return nil, pathspec.ErrNoEntry
}

func listRoot(ctx context.Context, emit emitFunc) error {
	if err := emit(pathspec.CommitsName); err != nil {
		return err
	}
	return emit(pathspec.BlobsName)
}

// listCommitDir lists the children of /commits/<oid>: tree, and parent
// when the commit has one. The parent check happens on the producer
// goroutine, after opendir already returned.
func (r *grofsRoot) listCommitDir(oid plumbing.Hash) producer {
	return func(ctx context.Context, emit emitFunc) error {
		if err := emit(pathspec.TreeName); err != nil {
			return err
		}

		commit, err := r.repo.CommitObject(oid)
		if err != nil {
			return errors.Wrapf(err, "commit %s", oid)
		}
		if len(commit.ParentHashes) == 0 {
			return nil
		}
		return emit(pathspec.ParentName)
	}
}

func (r *grofsRoot) listCommits(ctx context.Context, emit emitFunc) error {
	iter, err := r.repo.CommitObjects()
	if err != nil {
		return errors.Wrap(err, "commit enumeration")
	}
	defer iter.Close()

	return iter.ForEach(func(commit *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return emit(commit.Hash.String())
	})
}

func (r *grofsRoot) listBlobs(ctx context.Context, emit emitFunc) error {
	iter, err := r.repo.BlobObjects()
	if err != nil {
		return errors.Wrap(err, "blob enumeration")
	}
	defer iter.Close()

	return iter.ForEach(func(blob *object.Blob) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return emit(blob.Hash.String())
	})
}

// listTree lists the immediate children of a tree that are themselves
// trees or blobs; symlinks, submodules and the like are skipped.
func (r *grofsRoot) listTree(oid plumbing.Hash) producer {
	return func(ctx context.Context, emit emitFunc) error {
		tree, err := r.repo.TreeObject(oid)
		if err != nil {
			return errors.Wrapf(err, "tree %s", oid)
		}

		for _, entry := range tree.Entries {
			switch entry.Mode {
			case filemode.Dir, filemode.Regular, filemode.Executable:
			default:
				continue
			}
			if err := emit(entry.Name); err != nil {
				return err
			}
		}
		return nil
	}
}
