// Copyright 2022 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pidfile guards against a second watch daemon instance by
// tracking the owning process ID in a file.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

var (
	pidFilePath = defaultPath()
	pidFile     *os.File
)

// GetPath returns the current pidfile path.
func GetPath() string {
	return pidFilePath
}

// SetPath sets the pidfile path to the given one.
func SetPath(path string) {
	closeFile()
	pidFilePath = path
}

// Write creates the pidfile and writes os.Getpid() to it. If the file
// already exists Write fails. On success the file is kept open so the
// path stays owned until Remove.
func Write() error {
	if pidFile != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create pidfile directory")
	}

	f, err := os.OpenFile(pidFilePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create pidfile")
	}
	pidFile = f

	if _, err := fmt.Fprintf(pidFile, "%d\n", os.Getpid()); err != nil {
		closeFile()
		return errors.Wrap(err, "failed to write pidfile")
	}

	return nil
}

// Read returns the process ID recorded in the pidfile, 0 if the file
// does not exist, or -1 and an error if it cannot be read or parsed.
func Read() (int, error) {
	buf, err := os.ReadFile(pidFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrap(err, "failed to read pidfile")
	}

	pid, err := strconv.Atoi(strings.TrimRight(string(buf), "\n"))
	if err != nil {
		return -1, errors.Wrapf(err, "invalid PID (%q) in pidfile", string(buf))
	}

	return pid, nil
}

func closeFile() {
	if pidFile != nil {
		pidFile.Truncate(0)
		pidFile.Close()
		pidFile = nil
	}
}

// Remove removes the pidfile unconditionally, regardless of whether
// the current process created it.
func Remove() error {
	closeFile()
	if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// OwnerPid returns the ID of the live process owning the pidfile, 0 if
// no process owns it, or -1 and an error if ownership could not be
// determined.
func OwnerPid() (int, error) {
	pid, err := Read()
	if err != nil {
		return -1, err
	}
	if pid == 0 {
		return 0, nil
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return -1, errors.Wrapf(err, "FindProcess() failed for PID %d", pid)
	}

	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return pid, nil
	}
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return 0, nil
	}

	return -1, errors.Wrapf(err, "failed to check process %d", pid)
}

func defaultPath() string {
	if len(os.Args) == 0 {
		return ""
	}
	name := filepath.Base(os.Args[0])
	if os.Geteuid() > 0 {
		return filepath.Join("/tmp", name+".pid")
	}
	return filepath.Join("/", "var", "run", name+".pid")
}
