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

// grofs mounts a local git repository as a read-only filesystem. The
// mount exposes every commit under commits/ and every blob under
// blobs/, addressed by object ID.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	grofsfs "github.com/zlikavac32/grofs/fs"
)

const version = "0.1.0-alpha"

const usageFormat = `usage: %s git-repo-path mount-point [options]

Mounts a local git repository and exposes commits/blobs as folders/files.

options:
`

func main() {
	flags := pflag.NewFlagSet("grofs", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, usageFormat, os.Args[0])
		fmt.Fprint(os.Stderr, flags.FlagUsages())
	}

	showVersion := flags.BoolP("version", "V", false, "print version and exit")
	debug := flags.Bool("debug", false, "print FUSE debug information")
	mountOpts := flags.StringSliceP("option", "o", nil, "mount option forwarded to the FUSE layer (repeatable)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if *showVersion {
		fmt.Fprintf(os.Stderr, "grofs version: %s\n", version)
		os.Exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprint(os.Stderr, "git repository path not provided\n\n")
		flags.Usage()
		os.Exit(1)
	}
	if flags.NArg() < 2 {
		fmt.Fprint(os.Stderr, "mount point not provided\n\n")
		flags.Usage()
		os.Exit(1)
	}

	repoPath := flags.Arg(0)
	mntDir := flags.Arg(1)

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		log.WithError(err).Errorf("failed to open git repository at %s", repoPath)
		os.Exit(1)
	}

	// Objects are addressed by ID and never change, so the kernel may
	// cache attributes and entries generously. Negative entries are not
	// cached; new objects may appear in the store at any time.
	hour := time.Hour
	server, err := fs.Mount(mntDir, grofsfs.NewRoot(repo), &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:    "grofs",
			FsName:  repoPath,
			Debug:   *debug,
			Options: *mountOpts,
		},
		AttrTimeout:  &hour,
		EntryTimeout: &hour,
	})
	if err != nil {
		log.WithError(err).Errorf("failed to mount on %s", mntDir)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("unmounting")
		if err := server.Unmount(); err != nil {
			log.WithError(err).Error("unmount failed")
		}
	}()

	log.Infof("mounted %s on %s", repoPath, mntDir)
	server.Wait()
}
