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

package etmem

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Errors returned by scan and swap operations. Syscall failures are
// wrapped around one of these sentinels so that callers can test with
// errors.Is regardless of the added context.
var (
	ErrInvalidPid            = errors.New("invalid process id")
	ErrInvalidAddress        = errors.New("address is not page aligned")
	ErrInvalidFlags          = errors.New("invalid scan flags")
	ErrInvalidRange          = errors.New("invalid address range")
	ErrBufferTooSmall        = errors.Errorf("buffer size out of bounds (%d..%d bytes)", PageIdleBufMin, PageIdleKbufSize)
	ErrPermissionDenied      = errors.New("permission denied, CAP_SYS_ADMIN required")
	ErrProcessNotFound       = errors.New("process not found")
	ErrModuleNotLoaded       = errors.New("etmem kernel support not present")
	ErrWatermarkOutOfRange   = errors.Errorf("watermark percent exceeds %d", WatermarkMax)
	ErrInvalidWatermarkOrder = errors.New("low watermark must be below high watermark")
	ErrSessionClosed         = errors.New("session is closed")
)

// DecodeError reports a PIP byte whose type nibble is outside the
// known page type codes.
type DecodeError struct {
	Byte byte
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("unrecognized page type byte %#02x in PIP stream", e.Byte)
}

// osError wraps a failed syscall, mapping well-known errnos to the
// sentinel errors above.
func osError(err error, format string, args ...interface{}) error {
	switch {
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		err = ErrPermissionDenied
	case errors.Is(err, unix.ESRCH):
		err = ErrProcessNotFound
	case errors.Is(err, unix.ENODEV):
		err = ErrModuleNotLoaded
	case errors.Is(err, unix.EINVAL):
		err = ErrInvalidFlags
	}
	return errors.Wrapf(err, format, args...)
}

func scanError(format string, args ...interface{}) error {
	return errors.Errorf("scan failed: "+format, args...)
}

func swapError(format string, args ...interface{}) error {
	return errors.Errorf("swap failed: "+format, args...)
}
