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
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/zlikavac32/grofs/pathspec"
)

const (
	helloContent  = "hi\n"
	nestedContent = "nested content\n"
)

var (
	commit1Time = time.Unix(1136239445, 0)
	commit2Time = time.Unix(1136243045, 0)
)

// fixture holds a small repository with two commits: the first adds
// hello.txt, the second adds sub/nested.txt on top of it.
type fixture struct {
	repo *git.Repository
	root *grofsRoot

	commit1, commit2      plumbing.Hash
	helloBlob, nestedBlob plumbing.Hash
}

func signatureAt(when time.Time) *object.Signature {
	return &object.Signature{
		Name:  "A U Thor",
		Email: "author@example.com",
		When:  when,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte(helloContent), 0644))
	_, err = wt.Add("hello.txt")
	require.NoError(t, err)

	c1, err := wt.Commit("initial", &git.CommitOptions{
		Author:    signatureAt(commit1Time),
		Committer: signatureAt(commit1Time),
	})
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte(nestedContent), 0644))
	_, err = wt.Add("sub/nested.txt")
	require.NoError(t, err)

	c2, err := wt.Commit("add nested", &git.CommitOptions{
		Author:    signatureAt(commit2Time),
		Committer: signatureAt(commit2Time),
	})
	require.NoError(t, err)

	fx := &fixture{
		repo:    repo,
		root:    NewRoot(repo),
		commit1: c1,
		commit2: c2,
	}

	commit, err := repo.CommitObject(c2)
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)

	hello, err := tree.FindEntry("hello.txt")
	require.NoError(t, err)
	fx.helloBlob = hello.Hash

	nested, err := tree.FindEntry("sub/nested.txt")
	require.NoError(t, err)
	fx.nestedBlob = nested.Hash

	return fx
}

func (f *fixture) mustParse(t *testing.T, path string) pathspec.Spec {
	t.Helper()
	spec, err := pathspec.Parse(path)
	require.NoError(t, err)
	return spec
}

func (f *fixture) node(t *testing.T, path string) *grofsNode {
	t.Helper()
	return &grofsNode{root: f.root, spec: f.mustParse(t, path)}
}

// readdirNames drains the directory stream for path and returns the
// entry names in the order produced.
func (f *fixture) readdirNames(t *testing.T, path string) []string {
	t.Helper()

	res, err := f.root.resolve(f.mustParse(t, path))
	require.NoError(t, err)

	gen, err := f.root.listing(res)
	require.NoError(t, err)

	stream := newDirStream(gen)
	defer stream.Close()

	var names []string
	for stream.HasNext() {
		entry, errno := stream.Next()
		require.Equal(t, syscall.Errno(0), errno)
		names = append(names, entry.Name)
	}
	return names
}
