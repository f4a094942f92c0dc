// Package sandbox runs dynamically supplied analysis code against a dataset
// under a fixed entry-point contract. Code is interpreted with yaegi behind
// an import whitelist and a hard execution timeout; it never gains ambient
// host privileges.
package sandbox

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
	"github.com/prudhvi1709/hypoforge/internal/model/dataset"
	"github.com/prudhvi1709/hypoforge/internal/stats"
)

// EntryFunction is the fixed name analysis code must define:
//
//	func TestHypothesis(df *dataset.Dataset) (bool, float64)
const EntryFunction = "TestHypothesis"

var codeBlockPattern = regexp.MustCompile("(?s)```(?:go)?[ \t]*\n(.*?)```")

// ExtractCode returns the last fenced code block found in text, or the empty
// string when there is none. Empty code is guaranteed to fail the
// entry-point check downstream.
func ExtractCode(text string) string {
	matches := codeBlockPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}

// Packages importable by sandboxed code, beyond the pre-bound dataset and
// stats handles.
var allowedImports = map[string]bool{
	"fmt":     true,
	"math":    true,
	"sort":    true,
	"strings": true,
	"strconv": true,

	"hypoforge/dataset": true,
	"hypoforge/stats":   true,
}

// Runner executes analysis code with a bounded deadline.
type Runner struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner builds a runner. A non-positive timeout falls back to 30s.
func NewRunner(timeout time.Duration, logger *zap.Logger) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{timeout: timeout, logger: logger}
}

type runResult struct {
	success bool
	pValue  float64
}

// Run interprets code and invokes the entry function against ds. Every
// failure mode (entry absent, wrong signature, eval fault, panic, timeout)
// surfaces as an execution error.
func (r *Runner) Run(ctx context.Context, code string, ds *dataset.Dataset) (bool, float64, error) {
	src := wrapCode(code)
	if err := validateImports(src); err != nil {
		return false, 0, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return false, 0, apperr.Wrap(apperr.KindExecution, err, "failed to load interpreter stdlib")
	}
	if err := i.Use(sandboxSymbols()); err != nil {
		return false, 0, apperr.Wrap(apperr.KindExecution, err, "failed to bind sandbox symbols")
	}

	if _, err := i.Eval(src); err != nil {
		return false, 0, apperr.Wrap(apperr.KindExecution, err, "code evaluation failed")
	}

	entry, err := i.Eval("main." + EntryFunction)
	if err != nil {
		return false, 0, apperr.Wrap(apperr.KindExecution, err, "%s function not found", EntryFunction)
	}

	fn, ok := entry.Interface().(func(*dataset.Dataset) (bool, float64))
	if !ok {
		return false, 0, apperr.New(apperr.KindExecution,
			"%s has incorrect signature (expected func(*dataset.Dataset) (bool, float64))", EntryFunction)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resultCh := make(chan runResult, 1)
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				errCh <- apperr.New(apperr.KindExecution, "code execution panicked: %v", rec)
			}
		}()
		success, pValue := fn(ds)
		resultCh <- runResult{success: success, pValue: pValue}
	}()

	select {
	case res := <-resultCh:
		return res.success, res.pValue, nil
	case err := <-errCh:
		return false, 0, err
	case <-ctx.Done():
		r.logger.Warn("sandbox execution timed out", zap.Duration("timeout", r.timeout))
		return false, 0, apperr.Wrap(apperr.KindExecution, ctx.Err(), "code execution timed out")
	}
}

// sandboxSymbols exposes the dataset type and the stats handle to
// interpreted code under stable import paths.
func sandboxSymbols() interp.Exports {
	return interp.Exports{
		"hypoforge/dataset/dataset": {
			"Dataset":      reflect.ValueOf((*dataset.Dataset)(nil)),
			"Column":       reflect.ValueOf((*dataset.Column)(nil)),
			"Kind":         reflect.ValueOf((*dataset.Kind)(nil)),
			"KindNumeric":  reflect.ValueOf(dataset.KindNumeric),
			"KindTextual":  reflect.ValueOf(dataset.KindTextual),
			"KindTemporal": reflect.ValueOf(dataset.KindTemporal),
			"KindMixed":    reflect.ValueOf(dataset.KindMixed),
		},
		"hypoforge/stats/stats": {
			"Mean":        reflect.ValueOf(stats.Mean),
			"StdDev":      reflect.ValueOf(stats.StdDev),
			"Variance":    reflect.ValueOf(stats.Variance),
			"Correlation": reflect.ValueOf(stats.Correlation),
			"WelchTTest":  reflect.ValueOf(stats.WelchTTest),
		},
	}
}

// validateImports checks every import spec of the parsed source against the
// whitelist. The paths come from the AST, so every spelling of the import
// declaration is covered, including compact and aliased forms.
func validateImports(src string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "analysis.go", src, parser.ImportsOnly)
	if err != nil {
		return apperr.Wrap(apperr.KindExecution, err, "code parsing failed")
	}

	var forbidden []string
	for _, spec := range file.Imports {
		pkg, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			pkg = spec.Path.Value
		}
		if !allowedImports[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}

	if len(forbidden) > 0 {
		return apperr.New(apperr.KindExecution, "forbidden imports: %s", strings.Join(forbidden, ", "))
	}
	return nil
}

func wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return fmt.Sprintf("package main\n\n%s", code)
}
