// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package stage

import (
	"io/ioutil"
	"os"

	"github.com/grailbio/base/log"
)

const (
	// RootDevEnv overrides every other staging-root selection when
	// set. It exists so that development and debugging runs can be
	// redirected without touching job configuration.
	RootDevEnv = "STAGE_ROOT_DEV"
	// RootEnv names the staging root used when the caller supplies
	// none.
	RootEnv = "STAGE_ROOT"
)

// defaultRoots lists machine-local scratch locations tried in order
// when no root is configured. Batch nodes carry /scratch; /tmp exists
// everywhere else.
var defaultRoots = []string{"/scratch", "/tmp"}

// resolveRoot selects the parent directory for working directories.
// Priority: $STAGE_ROOT_DEV, the caller-supplied root, $STAGE_ROOT,
// the first usable default scratch location, and finally the current
// working directory.
func resolveRoot(arg string) string {
	if dir := os.Getenv(RootDevEnv); dir != "" {
		log.Debug.Printf("stage: root from $%s: %s", RootDevEnv, dir)
		return dir
	}
	if arg != "" {
		log.Debug.Printf("stage: root from caller: %s", arg)
		return arg
	}
	if dir := os.Getenv(RootEnv); dir != "" {
		log.Debug.Printf("stage: root from $%s: %s", RootEnv, dir)
		return dir
	}
	for _, dir := range defaultRoots {
		if isWritableDir(dir) {
			log.Debug.Printf("stage: root from default list: %s", dir)
			return dir
		}
		if err := os.MkdirAll(dir, 0777); err == nil {
			log.Debug.Printf("stage: root created from default list: %s", dir)
			return dir
		}
		log.Printf("stage: cannot use %s for staging", dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// isWritableDir probes dir by creating and removing a scratch file,
// the only check that holds up across filesystems and ACLs.
func isWritableDir(dir string) bool {
	f, err := ioutil.TempFile(dir, ".stage-probe")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
