package codegen

import (
	"strings"
	"testing"

	"github.com/Prime01-oss/MathexLab/pkg/ast"
)

func mustGenerate(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Generate(src)
	if err != nil {
		t.Fatalf("Generate(%q) returned error: %v", src, err)
	}
	return prog
}

func TestClassification(t *testing.T) {
	prog := mustGenerate(t, "x = 1;\n2 + 3\nfunction y = f(a)\ny = a;\nend\nhold on")
	want := []UnitClass{ClassAssign, ClassExpr, ClassFuncDef, ClassStmt}
	if len(prog.Units) != len(want) {
		t.Fatalf("unit count = %d, want %d", len(prog.Units), len(want))
	}
	for i, w := range want {
		if prog.Units[i].Class != w {
			t.Fatalf("Units[%d].Class = %v, want %v", i, prog.Units[i].Class, w)
		}
	}
}

func TestSuppressionFromSemicolon(t *testing.T) {
	prog := mustGenerate(t, "a = 1;\nb = 2")
	if !prog.Units[0].Suppressed {
		t.Fatalf("a = 1; not suppressed")
	}
	if prog.Units[1].Suppressed {
		t.Fatalf("b = 2 suppressed, want echo")
	}
}

func TestSemicolonInsideStringDoesNotSuppress(t *testing.T) {
	prog := mustGenerate(t, "s = 'a;b'")
	if prog.Units[0].Suppressed {
		t.Fatalf("semicolon inside string treated as suppression")
	}
}

func TestPerStatementSuppressionOnOneLine(t *testing.T) {
	prog := mustGenerate(t, "a = 1, b = 2; c = 3")
	want := []bool{false, true, false}
	for i, w := range want {
		if prog.Units[i].Suppressed != w {
			t.Fatalf("Units[%d].Suppressed = %v, want %v", i, prog.Units[i].Suppressed, w)
		}
	}
}

func TestSeparatorInsideBracketsIgnored(t *testing.T) {
	prog := mustGenerate(t, "a = [1, 2; 3, 4]")
	if prog.Units[0].Suppressed {
		t.Fatalf("matrix separators treated as statement suppression")
	}
}

func TestSemicolonBeforeCommentSuppresses(t *testing.T) {
	prog := mustGenerate(t, "a = 1; % note")
	if !prog.Units[0].Suppressed {
		t.Fatalf("a = 1; %% note not suppressed")
	}
}

func TestEchoNames(t *testing.T) {
	prog := mustGenerate(t, "A(2) = 5\n[q, r] = f(x)\n1 + 1")
	if got := prog.Units[0].EchoNames; len(got) != 1 || got[0] != "A" {
		t.Fatalf("indexed assign echo = %v, want [A]", got)
	}
	if got := prog.Units[1].EchoNames; len(got) != 2 || got[0] != "q" {
		t.Fatalf("multi-assign echo = %v, want [q r]", got)
	}
	if got := prog.Units[2].EchoNames; len(got) != 1 || got[0] != "ans" {
		t.Fatalf("expression echo = %v, want [ans]", got)
	}
}

func TestCommandLoweredToCall(t *testing.T) {
	prog := mustGenerate(t, "hold on")
	call, ok := prog.Units[0].Node.(*ast.Call)
	if !ok {
		t.Fatalf("command lowered to %T, want *ast.Call", prog.Units[0].Node)
	}
	arg, ok := call.Args[0].(*ast.String)
	if !ok || arg.Val != "on" {
		t.Fatalf("command argument = %#v, want string on", call.Args[0])
	}
	if !strings.Contains(prog.Listing, "hold('on')") {
		t.Fatalf("listing %q does not contain rewritten call", prog.Listing)
	}
}

func TestLineMapRoundTrip(t *testing.T) {
	src := "a = 1\n\nb = 2\nif a > 0\nc = 3;\nend"
	prog := mustGenerate(t, src)
	for _, unit := range prog.Units {
		if got := prog.SourceLine(unit.GenLine); got != unit.SrcLine {
			t.Fatalf("SourceLine(%d) = %d, want %d", unit.GenLine, got, unit.SrcLine)
		}
	}
}

func TestLineMapCoversNestedStatements(t *testing.T) {
	src := "if x > 0\ny = 1;\nend"
	prog := mustGenerate(t, src)
	lines := strings.Split(prog.Listing, "\n")
	var bodyGen int
	for i, l := range lines {
		if strings.Contains(l, "y = 1") {
			bodyGen = i + 1
		}
	}
	if bodyGen == 0 {
		t.Fatalf("nested assignment missing from listing %q", prog.Listing)
	}
	if got := prog.SourceLine(bodyGen); got != 2 {
		t.Fatalf("SourceLine(nested) = %d, want 2", got)
	}
}

func TestListingOneStatementPerLine(t *testing.T) {
	prog := mustGenerate(t, "a = 1, b = 2")
	lines := strings.Split(prog.Listing, "\n")
	if len(lines) != 2 {
		t.Fatalf("listing lines = %d, want 2 (%q)", len(lines), prog.Listing)
	}
}

func TestExprStringRange(t *testing.T) {
	prog := mustGenerate(t, "r = 0:0.5:2;")
	if !strings.Contains(prog.Listing, "0:0.5:2") {
		t.Fatalf("listing %q missing range spelling", prog.Listing)
	}
}
