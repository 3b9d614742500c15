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

// Command eqwalize typechecks the modules of a project with eqWAlizer.
//
// The project is described by a YAML file listing its applications and the
// options of the typechecker. The typechecker executable is given by the
// ELP_EQWALIZER_PATH environment variable.
//
// The exit code is 1 if diagnostics are reported and 2 if a module could not
// be checked.
package main

import (
	"cmp"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/template"

	basefmt "github.com/elp-tools/eqwalizer/base/fmt"
	"github.com/elp-tools/eqwalizer/base/iter"
	"github.com/elp-tools/eqwalizer/base/tmpl"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/db"
	"github.com/elp-tools/eqwalizer/build/importers/localfs"
	"github.com/elp-tools/eqwalizer/eqwalizer"
	"github.com/elp-tools/eqwalizer/ipc"
	"github.com/elp-tools/eqwalizer/tools/eqwflag"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	projectPath = flag.String("project", "", "path to the project file")
	modules     = eqwflag.StringList("modules", "modules to check (default: all the modules of the project applications)")
	mode        = eqwflag.Mode("mode", eqwalizer.Cli, "context in which eqWAlizer runs: cli, server or shell")
	format      = flag.String("format", "text", "output format: text or json")
	dumpStubs   = flag.Bool("dump_stubs", false, "print the transitive stubs of the modules instead of checking them")
	timeout     = flag.Duration("timeout", ipc.DefaultTimeout, "timeout of every read and write with eqWAlizer")
	verbose     = flag.Bool("v", false, "log debugging information")
)

const (
	exitOK = iota
	exitDiagnostics
	exitFailure
)

type command struct {
	project *localfs.Project
	fsys    fs.FS
	modules []string
	format  string
	eqw     *eqwalizer.Eqwalizer
	logger  *slog.Logger
	out     io.Writer
}

type session struct {
	id      ast.ProjectID
	host    *eqwalizer.Host
	modules []ast.ModuleName
}

type progressLogger struct {
	logger *slog.Logger
}

func (p progressLogger) EqwalizingStart(module ast.ModuleName) {
	p.logger.Info("eqWAlizing", "module", string(module))
}

func (p progressLogger) EqwalizingDone(module ast.ModuleName) {
	p.logger.Info("eqWAlized", "module", string(module))
}

func configFromSettings(settings localfs.Settings) eqwalizer.Config {
	return eqwalizer.Config{
		TolerateErrors:              settings.TolerateErrors,
		OccurrenceTyping:            settings.Eqwater,
		ClauseCoverage:              settings.ClauseCoverage,
		ReportBadMaps:               settings.ReportBadMaps,
		OverloadedSpecDynamicResult: settings.OverloadedSpecDynamicResult,
		ReportDynamicLambdas:        settings.ReportDynamicLambdas,
	}
}

func (c *command) open() (*session, error) {
	storage := localfs.New(c.fsys, c.project.Root)
	id, err := storage.Add(c.project)
	if err != nil {
		return nil, err
	}
	database := db.New(storage, db.WithLogger(c.logger), db.WithReadFile(storage.ReadFile))
	s := &session{
		id: id,
		host: eqwalizer.NewHost(database,
			eqwalizer.WithHostLogger(c.logger),
			eqwalizer.WithProgress(progressLogger{logger: c.logger}),
		),
	}
	if len(c.modules) == 0 {
		s.modules = storage.Modules(id, db.App)
		slices.Sort(s.modules)
		return s, nil
	}
	for _, module := range c.modules {
		s.modules = append(s.modules, ast.ModuleName(module))
	}
	return s, nil
}

func (c *command) dump(ctx context.Context) error {
	s, err := c.open()
	if err != nil {
		return err
	}
	var errs error
	for _, module := range s.modules {
		data, err := s.host.Database().TransitiveStubBytes(ctx, s.id, module)
		if err != nil {
			errs = multierr.Append(errs, errors.WithMessagef(err, "module %s", module))
			continue
		}
		if _, err := fmt.Fprintf(c.out, "%s\n%s\n", module, data); err != nil {
			return err
		}
	}
	return errs
}

func (c *command) check(ctx context.Context) (int, error) {
	s, err := c.open()
	if err != nil {
		return exitFailure, err
	}
	c.logger.Debug("checking modules", "project", c.project.Name, "modules", len(s.modules))
	diags := c.eqw.Typecheck(ctx, s.host, s.id, s.modules)
	switch c.format {
	case "json":
		err = writeJSON(c.out, diags)
	default:
		err = writeText(c.out, diags)
	}
	return exitCode(diags), err
}

func exitCode(diags eqwalizer.Diagnostics) int {
	report, ok := diags.(*eqwalizer.Report)
	if !ok {
		return exitFailure
	}
	if report.Count() > 0 {
		return exitDiagnostics
	}
	return exitOK
}

type row struct {
	Module      ast.ModuleName
	Start, End  int
	Code        string
	Message     string
	Explanation string
}

var rowTmpl = tmpl.New("row", template.FuncMap{"indent": basefmt.Indent},
	`{{.Module}}:{{.Start}}-{{.End}}: {{.Code}}: {{.Message}}
{{if .Explanation}}{{indent .Explanation}}
{{end}}`)

func rows(report *eqwalizer.Report) []row {
	var rs []row
	for _, module := range iter.SortedKeys(report.Errors, cmp.Compare[ast.ModuleName]) {
		for _, diag := range report.Errors[module] {
			r := row{
				Module:  module,
				Start:   diag.Range.Start,
				End:     diag.Range.End,
				Code:    diag.Code,
				Message: diag.Message,
			}
			if diag.Explanation != nil {
				r.Explanation = strings.TrimSuffix(*diag.Explanation, "\n")
			}
			rs = append(rs, r)
		}
	}
	return rs
}

func writeText(w io.Writer, diags eqwalizer.Diagnostics) error {
	var s string
	switch diagsT := diags.(type) {
	case *eqwalizer.Report:
		var err error
		if s, err = tmpl.IterateTmpl(rows(diagsT), rowTmpl); err != nil {
			return err
		}
		if n := diagsT.Count(); n > 0 {
			s += fmt.Sprintf("%d errors in %d modules\n", n, len(diagsT.Errors))
		}
	case *eqwalizer.NoAST:
		s = fmt.Sprintf("module %s cannot be parsed\n", diagsT.Module)
	case *eqwalizer.Failure:
		s = "eqWAlizer failed:\n" + basefmt.Indent(diagsT.Message) + "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

type jsonOutput struct {
	Diagnostics map[ast.ModuleName][]ipc.Diagnostic `json:"diagnostics,omitempty"`
	TypeInfo    map[ast.ModuleName][]ipc.TypeInfo   `json:"type_info,omitempty"`
	NoAST       ast.ModuleName                      `json:"no_ast,omitempty"`
	Error       string                              `json:"error,omitempty"`
}

func writeJSON(w io.Writer, diags eqwalizer.Diagnostics) error {
	var out jsonOutput
	switch diagsT := diags.(type) {
	case *eqwalizer.Report:
		out.Diagnostics = diagsT.Errors
		out.TypeInfo = diagsT.TypeInfo
	case *eqwalizer.NoAST:
		out.NoAST = diagsT.Module
	case *eqwalizer.Failure:
		out.Error = diagsT.Message
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func run(ctx context.Context, logger *slog.Logger) (int, error) {
	if *projectPath == "" {
		return exitFailure, errors.Errorf("no project specified: please use --project to specify a project file")
	}
	if *format != "text" && *format != "json" {
		return exitFailure, errors.Errorf("unknown output format %q: want text or json", *format)
	}
	proj, err := localfs.LoadProject(*projectPath)
	if err != nil {
		return exitFailure, err
	}
	cmd := &command{
		project: proj,
		fsys:    os.DirFS(proj.Root),
		modules: *modules,
		format:  *format,
		logger:  logger,
		out:     os.Stdout,
	}
	if *dumpStubs {
		if err := cmd.dump(ctx); err != nil {
			return exitFailure, err
		}
		return exitOK, nil
	}
	exe, err := eqwalizer.ExeFromEnv()
	if err != nil {
		return exitFailure, err
	}
	if exe == nil {
		return exitFailure, errors.Errorf("no eqWAlizer executable: please set %s", eqwalizer.PathEnv)
	}
	defer exe.Close()
	cmd.eqw = &eqwalizer.Eqwalizer{
		Mode:   *mode,
		Config: configFromSettings(proj.Eqwalizer),
		Exe:    exe,
		IPC: ipc.Options{
			ReadTimeout:  *timeout,
			WriteTimeout: *timeout,
			Logger:       logger,
		},
	}
	return cmd.check(ctx)
}

func main() {
	flag.Parse()
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code, err := run(ctx, logger)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "eqwalize: %v\n", err)
	}
	os.Exit(code)
}
