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

package eqwalizer_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/convert"
	"github.com/elp-tools/eqwalizer/build/db"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/elp-tools/eqwalizer/eqwalizer"
	"github.com/elp-tools/eqwalizer/ipc"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	loc     = ast.Pos{Start: 1, End: 2}
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func moduleForms(module ast.ModuleName, decls ...ast.Form) ast.AST {
	return append(ast.AST{&ast.Module{Location: loc, Name: module}}, decls...)
}

func typeDecl(name ast.AtomName, body ast.ExtType) *ast.ExternalTypeDecl {
	return &ast.ExternalTypeDecl{Location: loc, Id: ast.Id{Name: name}, Body: body}
}

func localType(name ast.AtomName) *ast.LocalExtType {
	return &ast.LocalExtType{Location: loc, Id: ast.Id{Name: name}}
}

type progress struct {
	mut    sync.Mutex
	events []string
}

func (p *progress) EqwalizingStart(module ast.ModuleName) {
	p.mut.Lock()
	defer p.mut.Unlock()
	p.events = append(p.events, "start "+string(module))
}

func (p *progress) EqwalizingDone(module ast.ModuleName) {
	p.mut.Lock()
	defer p.mut.Unlock()
	p.events = append(p.events, "done "+string(module))
}

func newHost(t *testing.T) (*eqwalizer.Host, *progress) {
	t.Helper()
	storage := db.NewMemStorage()
	app := &db.AppData{Name: "app", Type: db.App}
	modules := map[ast.ModuleName]ast.AST{
		"m":    moduleForms("m", typeDecl("t", localType("atom"))),
		"loop": moduleForms("loop", typeDecl("self", localType("self"))),
	}
	for module, forms := range modules {
		data, err := convert.ToBytes(forms)
		if err != nil {
			t.Fatalf("cannot encode module %s: %+v", module, err)
		}
		storage.Store(0, module, app, data)
	}
	storage.Store(0, "bad", app, []byte("{"))
	p := &progress{}
	host := eqwalizer.NewHost(
		db.New(storage, db.WithLogger(discard)),
		eqwalizer.WithProgress(p),
		eqwalizer.WithHostLogger(discard),
	)
	return host, p
}

// fakeChecker plays the typechecker side of a session.
type fakeChecker struct {
	conn net.Conn
	r    *bufio.Reader
}

func newSession(t *testing.T, opts ipc.Options) (*ipc.Handle, *fakeChecker) {
	t.Helper()
	local, peer := net.Pipe()
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	opts.Logger = discard
	h := ipc.NewHandle(local, local, local, opts)
	t.Cleanup(func() {
		h.Close()
		peer.Close()
	})
	return h, &fakeChecker{conn: peer, r: bufio.NewReader(peer)}
}

func (c *fakeChecker) send(msg string) error {
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_, err := fmt.Fprintln(c.conn, msg)
	return err
}

func (c *fakeChecker) expect(want string) error {
	c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		return errors.Wrapf(err, "waiting for %s", want)
	}
	if got := strings.TrimSuffix(line, "\n"); got != want {
		return errors.Errorf("got message %s but want %s", got, want)
	}
	return nil
}

// requestAST requests the forms of a module and returns the bytes sent in reply.
func (c *fakeChecker) requestAST(module ast.ModuleName, format ipc.ASTFormat) ([]byte, error) {
	if err := c.send(fmt.Sprintf(`{"tag":"GetAstBytes","content":{"module":%q,"format":%q}}`, module, format)); err != nil {
		return nil, err
	}
	c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	var reply struct {
		Tag     string
		Content ipc.GetAstBytesReply
	}
	if err := json.Unmarshal([]byte(line), &reply); err != nil {
		return nil, errors.Wrapf(err, "cannot decode reply %s", line)
	}
	if reply.Tag != "GetAstBytesReply" {
		return nil, errors.Errorf("got reply %s but want GetAstBytesReply", line)
	}
	if err := c.send(""); err != nil {
		return nil, err
	}
	data := make([]byte, reply.Content.AstBytesLen)
	if _, err := io.ReadFull(c.r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func runChecker(script func(c *fakeChecker) error, c *fakeChecker) <-chan error {
	errc := make(chan error, 1)
	go func() {
		errc <- script(c)
	}()
	return errc
}

func checkPeer(t *testing.T, errc <-chan error) {
	t.Helper()
	if err := <-errc; err != nil {
		t.Errorf("typechecker error: %+v", err)
	}
}

func diagnostic(msg string) ipc.Diagnostic {
	return ipc.Diagnostic{Range: loc, Message: msg, Code: "incompatible_types"}
}

func doneMessage(module ast.ModuleName, msg string) string {
	return fmt.Sprintf(`{"tag":"Done","content":{"diagnostics":{%q:[{"range":{"start_byte":1,"end_byte":2},"message":%q,"uri":"","code":"incompatible_types","expression":null,"explanation":null}]}}}`, module, msg)
}

func TestDriveSession(t *testing.T) {
	host, prog := newHost(t)
	h, checker := newSession(t, ipc.Options{})
	errc := runChecker(func(c *fakeChecker) error {
		if err := c.send(`{"tag":"EnteringModule","content":{"module":"m"}}`); err != nil {
			return err
		}
		if err := c.expect(`{"tag":"ELPEnteringModule"}`); err != nil {
			return err
		}
		data, err := c.requestAST("m", ipc.TransitiveStub)
		if err != nil {
			return err
		}
		s, err := stub.FromBytes(data)
		if err != nil {
			return errors.Wrapf(err, "cannot decode stub")
		}
		if _, ok := s.Types[ast.Id{Name: "t"}]; !ok {
			return errors.Errorf("type t missing from the stub of m")
		}
		if _, err := c.requestAST("m", ipc.ConvertedForms); err != nil {
			return err
		}
		data, err = c.requestAST("missing", ipc.TransitiveStub)
		if err != nil {
			return err
		}
		if len(data) != 0 {
			return errors.Errorf("got %d bytes for a missing module", len(data))
		}
		for _, msg := range []string{
			`{"tag":"Dependencies","content":{"modules":["m","missing","bad"]}}`,
			`{"tag":"EqwalizingStart","content":{"module":"m"}}`,
			`{"tag":"EqwalizingDone","content":{"module":"m"}}`,
			`{"tag":"EnteringModule","content":{"module":"n"}}`,
			doneMessage("m", "first"),
		} {
			if err := c.send(msg); err != nil {
				return err
			}
		}
		if err := c.expect(`{"tag":"ELPExitingModule"}`); err != nil {
			return err
		}
		if err := c.send(`{"tag":"EqwalizingStart","content":{"module":"x"}}`); err != nil {
			return err
		}
		return c.send(doneMessage("n", "second"))
	}, checker)

	got, err := eqwalizer.Drive(context.Background(), host, 0, h)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	checkPeer(t, errc)
	want := &eqwalizer.Report{
		Errors: map[ast.ModuleName][]ipc.Diagnostic{
			"m": {diagnostic("first")},
			"n": {diagnostic("second")},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected diagnostics (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"start m", "done m"}, prog.events); diff != "" {
		t.Errorf("unexpected progress (-want +got):\n%s", diff)
	}
	if _, ok := host.ModuleHandle("m"); ok {
		t.Errorf("handle of module m still installed after the session")
	}
}

func TestDriveModuleWithoutForms(t *testing.T) {
	host, _ := newHost(t)
	h, checker := newSession(t, ipc.Options{})
	errc := runChecker(func(c *fakeChecker) error {
		if err := c.send(`{"tag":"EnteringModule","content":{"module":"bad"}}`); err != nil {
			return err
		}
		if err := c.expect(`{"tag":"ELPEnteringModule"}`); err != nil {
			return err
		}
		if err := c.send(`{"tag":"GetAstBytes","content":{"module":"bad","format":"ConvertedForms"}}`); err != nil {
			return err
		}
		return c.expect(`{"tag":"CannotCompleteRequest"}`)
	}, checker)

	got, err := eqwalizer.Drive(context.Background(), host, 0, h)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	checkPeer(t, errc)
	if diff := cmp.Diff(&eqwalizer.NoAST{Module: "bad"}, got); diff != "" {
		t.Errorf("unexpected diagnostics (-want +got):\n%s", diff)
	}
}

func TestDriveInvalidStub(t *testing.T) {
	host, _ := newHost(t)
	h, checker := newSession(t, ipc.Options{})
	errc := runChecker(func(c *fakeChecker) error {
		if err := c.send(`{"tag":"EnteringModule","content":{"module":"m"}}`); err != nil {
			return err
		}
		if err := c.expect(`{"tag":"ELPEnteringModule"}`); err != nil {
			return err
		}
		if err := c.send(`{"tag":"GetAstBytes","content":{"module":"loop","format":"TransitiveStub"}}`); err != nil {
			return err
		}
		return c.expect(`{"tag":"CannotCompleteRequest"}`)
	}, checker)

	got, err := eqwalizer.Drive(context.Background(), host, 0, h)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	checkPeer(t, errc)
	failure, ok := got.(*eqwalizer.Failure)
	if !ok {
		t.Fatalf("got %T but want %T", got, &eqwalizer.Failure{})
	}
	if !strings.Contains(failure.Message, "self") {
		t.Errorf("failure %q does not name the offending type", failure.Message)
	}
}

func TestDriveTimeout(t *testing.T) {
	host, _ := newHost(t)
	h, _ := newSession(t, ipc.Options{ReadTimeout: 20 * time.Millisecond})
	_, err := eqwalizer.Drive(context.Background(), host, 0, h)
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Errorf("got error %v but want a timeout", err)
	}
}

func TestDriveCanceled(t *testing.T) {
	host, _ := newHost(t)
	h, _ := newSession(t, ipc.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eqwalizer.Drive(ctx, host, 0, h); !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v but want context.Canceled", err)
	}
}

func TestModuleDiagnosticsWithoutHandle(t *testing.T) {
	host, _ := newHost(t)
	got := eqwalizer.ModuleDiagnostics(context.Background(), host, 0, "m")
	want := &eqwalizer.Failure{Message: "eqWAlizing module m:\nno eqWAlizer handle for module m"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected diagnostics (-want +got):\n%s", diff)
	}
}

func TestPrefetch(t *testing.T) {
	host, _ := newHost(t)
	err := host.Prefetch(context.Background(), 0, []ast.ModuleName{"m", "missing", "bad"})
	if got := len(multierr.Errors(err)); got != 2 {
		t.Errorf("got %d errors but want 2: %v", got, err)
	}
	if got := host.Database().Stats()["transitive_stub_bytes"]; got != 3 {
		t.Errorf("prefetched %d modules but want 3", got)
	}
	if err := host.Prefetch(context.Background(), 0, []ast.ModuleName{"m"}); err != nil {
		t.Errorf("unexpected error: %+v", err)
	}
	if got := host.Database().Stats()["transitive_stub_bytes"]; got != 3 {
		t.Errorf("prefetched modules computed again")
	}
}

func TestTypecheckWithoutExe(t *testing.T) {
	host, _ := newHost(t)
	e := &eqwalizer.Eqwalizer{}
	got := e.Typecheck(context.Background(), host, 0, []ast.ModuleName{"m"})
	if diff := cmp.Diff(&eqwalizer.Report{}, got); diff != "" {
		t.Errorf("unexpected diagnostics (-want +got):\n%s", diff)
	}
}

func TestTypecheckStartFailure(t *testing.T) {
	host, _ := newHost(t)
	exe, err := eqwalizer.NewExe("/nonexistent/eqwalizer")
	if err != nil {
		t.Fatal(err)
	}
	e := &eqwalizer.Eqwalizer{Exe: exe, IPC: ipc.Options{Logger: discard}}
	got := e.Typecheck(context.Background(), host, 0, []ast.ModuleName{"m"})
	failure, ok := got.(*eqwalizer.Failure)
	if !ok {
		t.Fatalf("got %T but want %T", got, &eqwalizer.Failure{})
	}
	if !strings.Contains(failure.Message, "cannot start eqWAlizer") {
		t.Errorf("unexpected failure %q", failure.Message)
	}
}
