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

// Package pathspec classifies absolute mount paths. Classification is
// purely lexical; the object store is never consulted here.
package pathspec

import (
	"errors"
	"strings"
)

// ErrNoEntry is returned for any path that does not match the mount's
// namespace.
var ErrNoEntry = errors.New("no such entry")

// OIDLen is the length of a hex SHA-1 object ID.
const OIDLen = 40

// Names of the fixed directory entries.
const (
	CommitsName = "commits"
	BlobsName   = "blobs"
	TreeName    = "tree"
	ParentName  = "parent"
)

// RootChild says which top-level subtree a path belongs to.
type RootChild int

const (
	Root RootChild = iota
	Commits
	Blobs
)

func (c RootChild) String() string {
	switch c {
	case Root:
		return "root"
	case Commits:
		return CommitsName
	case Blobs:
		return BlobsName
	}
	return "unknown"
}

// Entry refines a RootChild into the concrete node a path names.
type Entry int

const (
	// None is the root itself.
	None Entry = iota
	// List is /commits or /blobs.
	List
	// ID is /commits/<oid> or /blobs/<oid>.
	ID
	// Tree is /commits/<oid>/tree.
	Tree
	// PathInGit is /commits/<oid>/tree/<sub...>.
	PathInGit
	// Parent is /commits/<oid>/parent.
	Parent
)

func (e Entry) String() string {
	switch e {
	case None:
		return "none"
	case List:
		return "list"
	case ID:
		return "id"
	case Tree:
		return TreeName
	case PathInGit:
		return "path-in-git"
	case Parent:
		return ParentName
	}
	return "unknown"
}

// Spec is the parsed form of one absolute path.
type Spec struct {
	// Parts is the path split on "/", leading slash removed. Empty for
	// the root.
	Parts     []string
	RootChild RootChild
	Entry     Entry
}

// OID returns the hex object-ID component, valid for ID, Tree, PathInGit
// and Parent specs.
func (s Spec) OID() string {
	return s.Parts[1]
}

// TreePath returns the path below "tree", "/"-joined. Only valid for
// PathInGit specs.
func (s Spec) TreePath() string {
	return strings.Join(s.Parts[3:], "/")
}

// Path reassembles the absolute path the spec was parsed from.
func (s Spec) Path() string {
	return "/" + strings.Join(s.Parts, "/")
}

// Child extends the spec by one path component and reclassifies.
func (s Spec) Child(name string) (Spec, error) {
	parts := make([]string, 0, len(s.Parts)+1)
	parts = append(parts, s.Parts...)
	parts = append(parts, name)
	return parse(parts)
}

func isHexOID(s string) bool {
	if len(s) != OIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Parse classifies an absolute path. Anything outside the namespace,
// including empty components and non-lowercase or wrong-length object
// IDs, yields ErrNoEntry.
func Parse(path string) (Spec, error) {
	if len(path) == 0 || path[0] != '/' {
		return Spec{}, ErrNoEntry
	}
	if path == "/" {
		return Spec{RootChild: Root, Entry: None}, nil
	}

	parts := strings.Split(path[1:], "/")
	for _, p := range parts {
		if p == "" {
			return Spec{}, ErrNoEntry
		}
	}
	return parse(parts)
}

func parse(parts []string) (Spec, error) {
	spec := Spec{Parts: parts}

	if len(parts) == 0 {
		spec.RootChild = Root
		spec.Entry = None
		return spec, nil
	}

	switch parts[0] {
	case CommitsName:
		spec.RootChild = Commits
	case BlobsName:
		spec.RootChild = Blobs
	default:
		return Spec{}, ErrNoEntry
	}

	if len(parts) == 1 {
		spec.Entry = List
		return spec, nil
	}

	if !isHexOID(parts[1]) {
		return Spec{}, ErrNoEntry
	}

	if spec.RootChild == Blobs {
		if len(parts) > 2 {
			return Spec{}, ErrNoEntry
		}
		spec.Entry = ID
		return spec, nil
	}

	if len(parts) == 2 {
		spec.Entry = ID
		return spec, nil
	}

	switch parts[2] {
	case TreeName:
		if len(parts) == 3 {
			spec.Entry = Tree
		} else {
			spec.Entry = PathInGit
		}
		return spec, nil
	case ParentName:
		if len(parts) == 3 {
			spec.Entry = Parent
			return spec, nil
		}
	}

	return Spec{}, ErrNoEntry
}
