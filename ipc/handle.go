// Copyright 2025 Google LLC
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

// Package ipc implements the protocol spoken with the eqWAlizer typechecker.
//
// Control messages are JSON objects, one per line, tagged by a "tag" field
// with their payload in a "content" field. Forms are sent as raw bytes after
// a GetAstBytesReply giving their length and an acknowledging newline from
// the typechecker.
package ipc

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	// DefaultTimeout bounds every read and write by default.
	DefaultTimeout = 240 * time.Second

	// ChunkSize is the size of the chunks in which bytes are written.
	// It does not exceed the pipe buffer size of common platforms.
	ChunkSize = 65536

	spawnBackoff = 10 * time.Millisecond

	maxLoggedLen = 1024
)

// Options of a handle.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

func (opts Options) withDefaults() Options {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// LimitLoggedString truncates long strings before they are logged.
func LimitLoggedString(s string) string {
	if len(s) <= maxLoggedLen {
		return s
	}
	end := maxLoggedLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "..."
}

type (
	readDeadliner interface {
		SetReadDeadline(time.Time) error
	}

	writeDeadliner interface {
		SetWriteDeadline(time.Time) error
	}
)

// Handle is a connection with a typechecker.
// Exchanges, that is a message and its reply, are guarded by Lock and Unlock.
type Handle struct {
	mut  sync.Mutex
	opts Options

	rawR io.Reader
	r    *bufio.Reader
	rawW io.Writer
	w    *bufio.Writer

	closer    io.Closer
	cmd       *exec.Cmd
	closeOnce sync.Once
	closeErr  error

	deadlineOnce sync.Once
}

// NewHandle returns a handle reading messages from r and writing messages to w.
// closer, if not nil, is closed when the handle is closed.
// Timeouts are only enforced if r and w support deadlines.
func NewHandle(r io.Reader, w io.Writer, closer io.Closer, opts Options) *Handle {
	return &Handle{
		opts:   opts.withDefaults(),
		rawR:   r,
		r:      bufio.NewReader(r),
		rawW:   w,
		w:      bufio.NewWriter(w),
		closer: closer,
	}
}

// Lock the handle for an exchange.
func (h *Handle) Lock() {
	h.mut.Lock()
}

// Unlock the handle.
func (h *Handle) Unlock() {
	h.mut.Unlock()
}

func (h *Handle) readDeadline() {
	if d, ok := h.rawR.(readDeadliner); ok {
		h.checkDeadline(d.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout)))
	}
}

func (h *Handle) writeDeadline() {
	if d, ok := h.rawW.(writeDeadliner); ok {
		h.checkDeadline(d.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout)))
	}
}

// checkDeadline reports, once per handle, that timeouts cannot be enforced.
func (h *Handle) checkDeadline(err error) {
	if err == nil {
		return
	}
	h.deadlineOnce.Do(func() {
		h.opts.Logger.Warn("eqWAlizer timeouts are not enforced", "error", err)
	})
}

func (h *Handle) receiveLine() (string, error) {
	h.readDeadline()
	line, err := h.r.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", errors.New("connection closed by eqWAlizer")
	}
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "failed to read from eqWAlizer")
	}
	return line, nil
}

// Receive the next message sent by the typechecker.
func (h *Handle) Receive() (MsgFrom, error) {
	line, err := h.receiveLine()
	if err != nil {
		return nil, errors.WithMessage(err, "receiving message")
	}
	h.opts.Logger.Debug("received from eqWAlizer", "message", LimitLoggedString(line))
	msg, err := Decode([]byte(line))
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing message from eqWAlizer %q", LimitLoggedString(line))
	}
	return msg, nil
}

// ReceiveNewline waits for the typechecker to acknowledge a reply.
func (h *Handle) ReceiveNewline() error {
	_, err := h.receiveLine()
	return errors.WithMessage(err, "receiving newline")
}

// Send a message to the typechecker.
func (h *Handle) Send(msg MsgTo) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	h.writeDeadline()
	if _, err := h.w.Write(append(data, '\n')); err != nil {
		return errors.Wrapf(err, "writing message %s", data)
	}
	if err := h.w.Flush(); err != nil {
		return errors.Wrapf(err, "flushing message %s", data)
	}
	h.opts.Logger.Debug("sent to eqWAlizer", "message", string(data))
	return nil
}

// SendBytes writes raw bytes in chunks of ChunkSize bytes.
// The output is flushed after every chunk.
func (h *Handle) SendBytes(data []byte) error {
	for idx := 0; len(data) > 0; idx++ {
		chunk := data[:min(len(data), ChunkSize)]
		data = data[len(chunk):]
		h.writeDeadline()
		if _, err := h.w.Write(chunk); err != nil {
			return errors.Wrapf(err, "writing bytes chunk %d of size %d", idx, len(chunk))
		}
		if err := h.w.Flush(); err != nil {
			return errors.Wrapf(err, "flushing bytes chunk %d of size %d", idx, len(chunk))
		}
	}
	h.writeDeadline()
	return errors.Wrap(h.w.Flush(), "flushing bytes")
}

// Close the connection. The typechecker process, if any, is killed.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if h.closer != nil {
			h.closeErr = h.closer.Close()
		}
		if h.cmd == nil || h.cmd.Process == nil {
			return
		}
		_ = h.cmd.Process.Kill()
		_ = h.cmd.Wait()
	})
	return h.closeErr
}

type pipes struct {
	stdinW  *os.File
	stdoutR *os.File
}

func (p pipes) Close() error {
	errIn := p.stdinW.Close()
	errOut := p.stdoutR.Close()
	if errIn != nil {
		return errIn
	}
	return errOut
}

func cloneCmd(cmd *exec.Cmd) *exec.Cmd {
	c := exec.Command(cmd.Path)
	c.Args = cmd.Args
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Err = cmd.Err
	return c
}

func start(cmd *exec.Cmd) (*pipes, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, err
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	// For debugging purposes.
	cmd.Stderr = os.Stderr
	err = cmd.Start()
	// The child has its own copy of its ends of the pipes.
	stdinR.Close()
	stdoutW.Close()
	if err != nil {
		stdinW.Close()
		stdoutR.Close()
		return nil, err
	}
	return &pipes{stdinW: stdinW, stdoutR: stdoutR}, nil
}

// FromCommand starts a typechecker process and returns a handle to talk to it.
//
// The executable may still be being written when the process starts: the
// start is retried as long as the executable is busy.
func FromCommand(ctx context.Context, cmd *exec.Cmd, opts Options) (*Handle, error) {
	opts = opts.withDefaults()
	for {
		c := cloneCmd(cmd)
		p, err := start(c)
		if err == nil {
			h := NewHandle(p.stdoutR, p.stdinW, p, opts)
			h.cmd = c
			return h, nil
		}
		if !errors.Is(err, syscall.ETXTBSY) {
			info, statErr := os.Stat(c.Path)
			opts.Logger.Error("cannot start eqWAlizer",
				"error", err,
				"command", LimitLoggedString(c.String()),
				"path", c.Path,
				"metadata", fileMetadata(info, statErr),
			)
			return nil, errors.Wrapf(err, "cannot start eqWAlizer: command %q, path %s, metadata %s", c.String(), c.Path, fileMetadata(info, statErr))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(spawnBackoff):
		}
	}
}

func fileMetadata(info os.FileInfo, err error) string {
	if err != nil {
		return err.Error()
	}
	return info.Mode().String() + " " + info.ModTime().Format(time.RFC3339)
}
