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

	log "github.com/sirupsen/logrus"
)

// LogicErrorExit is the process exit code for states only reachable
// through a programming error.
const LogicErrorExit = 64

// logicHalt reports a bug and terminates the process. Tests swap it out
// to capture the fault instead.
var logicHalt = func(format string, args ...interface{}) {
	log.Errorf(format, args...)
	os.Exit(LogicErrorExit)
}
