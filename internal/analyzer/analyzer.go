// Package analyzer implements the log message go/analysis pass shipped in the
// bundled example plugin.
//
// It walks every call expression in a file, identifies calls to supported
// logging libraries, extracts the message argument and runs the rule set in
// internal/rules against it.
//
// Supported loggers
//   - log/slog – Info, Warn, Error, Debug and their Context variants
//   - go.uber.org/zap – Info, Warn, Error, Debug, Fatal, Panic (sugar and non-sugar)
//   - standard library log – Print*, Fatal*, Panic*
//
// When type information is incomplete, as it is for files analyzed outside
// their module, package-qualified calls are matched by the file's imports.
package analyzer

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/Wladim1r/lintrun/internal/rules"
)

// Name is the analyzer name, also used as the diagnostic code.
const Name = "logmsg"

// Diagnostic categories.
const (
	CategoryStyle    = "style"
	CategorySecurity = "security"
)

// Analyzer checks log messages with the default keyword list.
var Analyzer = New(nil)

// New constructs an Analyzer that flags the given sensitive keywords.
// A nil slice selects rules.DefaultSensitiveKeywords.
func New(keywords []string) *analysis.Analyzer {
	if keywords == nil {
		keywords = rules.DefaultSensitiveKeywords()
	}
	return &analysis.Analyzer{
		Name:     Name,
		Doc:      "checks log messages for a lowercase first letter and sensitive data",
		Requires: []*analysis.Analyzer{inspect.Analyzer},
		Run: func(pass *analysis.Pass) (any, error) {
			run(pass, keywords)
			return nil, nil
		},
	}
}

// logCall describes one call to a logging function.
type logCall struct {
	// msgArg is the message argument.
	msgArg ast.Expr
	// msg is the constant part of the message; empty when it is computed.
	msg string
	// idents are the identifiers passed anywhere in the call's arguments.
	idents []string
}

func run(pass *analysis.Pass, keywords []string) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	imports := make(map[*ast.File]map[string]string, len(pass.Files))
	for _, f := range pass.Files {
		imports[f] = importNames(f)
	}

	insp.WithStack([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		file, _ := stack[0].(*ast.File)
		lc, ok := extractLogCall(pass, imports[file], n.(*ast.CallExpr))
		if ok {
			check(pass, keywords, lc)
		}
		return true
	})
}

// importNames maps the local name of each import in f to its path.
func importNames(f *ast.File) map[string]string {
	names := make(map[string]string, len(f.Imports))
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := path[strings.LastIndex(path, "/")+1:]
		if spec.Name != nil {
			name = spec.Name.Name
		}
		names[name] = path
	}
	return names
}

func extractLogCall(pass *analysis.Pass, imports map[string]string, call *ast.CallExpr) (logCall, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || !isLogMethod(sel.Sel.Name) {
		return logCall{}, false
	}
	if !isSupportedPackage(declaringPackage(pass, imports, sel)) {
		return logCall{}, false
	}

	idx := messageArgIndex(sel.Sel.Name)
	if idx >= len(call.Args) {
		return logCall{}, false
	}

	lc := logCall{
		msgArg: call.Args[idx],
		msg:    stringValue(pass, call.Args[idx]),
	}
	for _, arg := range call.Args {
		ast.Inspect(arg, func(n ast.Node) bool {
			if id, ok := n.(*ast.Ident); ok {
				lc.idents = append(lc.idents, id.Name)
			}
			return true
		})
	}
	return lc, true
}

// declaringPackage returns the import path of the package that declares the
// selected function or method, or "" if it cannot be determined.
func declaringPackage(pass *analysis.Pass, imports map[string]string, sel *ast.SelectorExpr) string {
	if obj := pass.TypesInfo.Uses[sel.Sel]; obj != nil && obj.Pkg() != nil {
		return obj.Pkg().Path()
	}
	x, ok := sel.X.(*ast.Ident)
	if !ok {
		return ""
	}
	switch obj := pass.TypesInfo.Uses[x].(type) {
	case *types.PkgName:
		return obj.Imported().Path()
	case nil:
		return imports[x.Name]
	}
	return ""
}

func isLogMethod(name string) bool {
	switch name {
	case
		"Info", "Warn", "Error", "Debug",
		"Fatal", "Panic", "DPanic",
		"Infof", "Warnf", "Errorf", "Debugf",
		"Infow", "Warnw", "Errorw", "Debugw",
		"InfoContext", "WarnContext", "ErrorContext", "DebugContext",
		"Print", "Printf", "Println",
		"Fatalf", "Fatalln",
		"Panicf", "Panicln":
		return true
	}
	return false
}

func isSupportedPackage(path string) bool {
	switch path {
	case "log", "log/slog", "go.uber.org/zap":
		return true
	}
	return false
}

// messageArgIndex returns the position of the message argument. The slog
// Context variants take a context.Context first.
func messageArgIndex(method string) int {
	if strings.HasSuffix(method, "Context") {
		return 1
	}
	return 0
}

// stringValue resolves the constant text of expr, following + concatenation
// when the type checker has no value for it.
func stringValue(pass *analysis.Pass, expr ast.Expr) string {
	if tv, ok := pass.TypesInfo.Types[expr]; ok && tv.Value != nil && tv.Value.Kind() == constant.String {
		return constant.StringVal(tv.Value)
	}
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			s, err := strconv.Unquote(e.Value)
			if err == nil {
				return s
			}
		}
	case *ast.BinaryExpr:
		if e.Op == token.ADD {
			return stringValue(pass, e.X) + stringValue(pass, e.Y)
		}
	case *ast.ParenExpr:
		return stringValue(pass, e.X)
	}
	return ""
}

func check(pass *analysis.Pass, keywords []string, lc logCall) {
	if msg := rules.CheckLowercase(lc.msg); msg != "" {
		pass.Report(analysis.Diagnostic{
			Pos:            lc.msgArg.Pos(),
			End:            lc.msgArg.End(),
			Category:       CategoryStyle,
			Message:        msg,
			SuggestedFixes: lowercaseFix(lc),
		})
	}
	if msg := rules.CheckSensitive(lc.msg, lc.idents, keywords); msg != "" {
		pass.Report(analysis.Diagnostic{
			Pos:      lc.msgArg.Pos(),
			End:      lc.msgArg.End(),
			Category: CategorySecurity,
			Message:  msg,
		})
	}
}

// lowercaseFix rewrites a plain string literal; computed messages get no fix.
func lowercaseFix(lc logCall) []analysis.SuggestedFix {
	lit, ok := lc.msgArg.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return nil
	}

	fixed := rules.LowercaseFirst(lc.msg)
	var text string
	if strings.HasPrefix(lit.Value, "`") {
		text = "`" + fixed + "`"
	} else {
		text = strconv.Quote(fixed)
	}

	return []analysis.SuggestedFix{{
		Message: "lowercase first letter of log message",
		TextEdits: []analysis.TextEdit{{
			Pos:     lit.Pos(),
			End:     lit.End(),
			NewText: []byte(text),
		}},
	}}
}
