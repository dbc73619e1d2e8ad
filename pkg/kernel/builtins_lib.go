package kernel

import (
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"strings"
	"time"

	"github.com/Prime01-oss/MathexLab/pkg/runtime"
)

//-----------------------------------------------------------------------------
// Reductions and linear algebra
//-----------------------------------------------------------------------------

// columns splits a value into reduction units: whole vectors reduce at
// once, matrices reduce per column.
func columns(v runtime.Value) ([][]complex128, bool, error) {
	arr, err := runtime.ToArray(v)
	if err != nil {
		return nil, false, err
	}
	rows, cols := arr.Dims()
	if rows == 1 || cols == 1 {
		return [][]complex128{arr.Flatten()}, true, nil
	}
	flat := arr.Flatten()
	out := make([][]complex128, cols)
	for c := 0; c < cols; c++ {
		out[c] = flat[c*rows : (c+1)*rows]
	}
	return out, false, nil
}

func reduceBuiltin(name string, f func(col []complex128) complex128) *runtime.Callable {
	return builtin(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk(name, args, 1, 1); err != nil {
			return nil, err
		}
		cols, vector, err := columns(args[0])
		if err != nil {
			return nil, err
		}
		if vector {
			// Empty input reduces to the operation's identity, f([]).
			return one(runtime.NewComplex(f(cols[0]))), nil
		}
		vals := make([]complex128, len(cols))
		for i, col := range cols {
			vals[i] = f(col)
		}
		return one(runtime.RowVector(vals)), nil
	})
}

// extremum implements min and max with the optional index output for
// vector inputs.
func extremum(name string, better func(a, b float64) bool) *runtime.Callable {
	return builtin(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk(name, args, 1, 2); err != nil {
			return nil, err
		}
		if len(args) == 2 {
			// Two-argument form is the elementwise pairing.
			return pairwiseExtremum(args[0], args[1], better)
		}
		cols, vector, err := columns(args[0])
		if err != nil {
			return nil, err
		}
		pick := func(col []complex128) (complex128, int) {
			bestIdx := 0
			for i, x := range col {
				if better(real(x), real(col[bestIdx])) {
					bestIdx = i
				}
			}
			return col[bestIdx], bestIdx + 1
		}
		if vector {
			if len(cols[0]) == 0 {
				return one(runtime.Empty()), nil
			}
			v, idx := pick(cols[0])
			if nargout >= 2 {
				return []runtime.Value{runtime.NewComplex(v), runtime.NewNum(float64(idx))}, nil
			}
			return one(runtime.NewComplex(v)), nil
		}
		vals := make([]complex128, len(cols))
		idxs := make([]complex128, len(cols))
		for i, col := range cols {
			v, idx := pick(col)
			vals[i] = v
			idxs[i] = complex(float64(idx), 0)
		}
		if nargout >= 2 {
			return []runtime.Value{runtime.RowVector(vals), runtime.RowVector(idxs)}, nil
		}
		return one(runtime.RowVector(vals)), nil
	})
}

func pairwiseExtremum(a, b runtime.Value, better func(x, y float64) bool) ([]runtime.Value, error) {
	return pairwiseMap(a, b, func(x, y complex128) complex128 {
		if better(real(x), real(y)) {
			return x
		}
		return y
	})
}

// pairwiseMap applies f elementwise across two operands, broadcasting a
// scalar against the other operand's shape.
func pairwiseMap(a, b runtime.Value, f func(x, y complex128) complex128) ([]runtime.Value, error) {
	av, err := runtime.ToArray(a)
	if err != nil {
		return nil, err
	}
	bv, err := runtime.ToArray(b)
	if err != nil {
		return nil, err
	}
	shape := av
	if av.NumEl() == 1 && bv.NumEl() > 1 {
		shape = bv
	}
	rows, cols := shape.Dims()
	if av.NumEl() > 1 && bv.NumEl() > 1 && av.NumEl() != bv.NumEl() {
		return nil, &runtime.DimensionError{Msg: "Matrix dimensions must agree"}
	}
	af, bf := av.Flatten(), bv.Flatten()
	flat := make([]complex128, rows*cols)
	for i := range flat {
		flat[i] = f(broadcastAt(af, i), broadcastAt(bf, i))
	}
	if len(flat) == 1 {
		return one(runtime.NewComplex(flat[0])), nil
	}
	out, err := runtime.ColVector(flat).Reshape(rows, cols)
	if err != nil {
		return nil, err
	}
	return one(out), nil
}

func broadcastAt(vals []complex128, i int) complex128 {
	if len(vals) == 1 {
		return vals[0]
	}
	return vals[i]
}

func (s *Session) installReductions() {
	s.reg.RegisterBuiltin(reduceBuiltin("sum", func(col []complex128) complex128 {
		var total complex128
		for _, x := range col {
			total += x
		}
		return total
	}))
	s.reg.RegisterBuiltin(reduceBuiltin("prod", func(col []complex128) complex128 {
		total := complex128(1)
		for _, x := range col {
			total *= x
		}
		return total
	}))
	s.reg.RegisterBuiltin(reduceBuiltin("mean", func(col []complex128) complex128 {
		var total complex128
		for _, x := range col {
			total += x
		}
		return total / complex(float64(len(col)), 0)
	}))
	s.reg.RegisterBuiltin(extremum("max", func(a, b float64) bool { return a > b }))
	s.reg.RegisterBuiltin(extremum("min", func(a, b float64) bool { return a < b }))

	s.reg.RegisterBuiltin(reduceBuiltin("any", func(col []complex128) complex128 {
		for _, x := range col {
			if x != 0 {
				return 1
			}
		}
		return 0
	}))
	s.reg.RegisterBuiltin(reduceBuiltin("all", func(col []complex128) complex128 {
		for _, x := range col {
			if x == 0 {
				return 0
			}
		}
		return 1
	}))

	divRemainder := func(name string, f func(a, b float64) float64) {
		s.reg.RegisterBuiltin(builtin(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if err := nargchk(name, args, 2, 2); err != nil {
				return nil, err
			}
			return pairwiseMap(args[0], args[1], func(x, y complex128) complex128 {
				return complex(f(real(x), real(y)), 0)
			})
		}))
	}
	// mod follows the divisor's sign, rem the dividend's.
	divRemainder("mod", func(a, b float64) float64 {
		if b == 0 {
			return a
		}
		return a - math.Floor(a/b)*b
	})
	divRemainder("rem", func(a, b float64) float64 {
		if b == 0 {
			return math.NaN()
		}
		return math.Mod(a, b)
	})

	s.reg.RegisterBuiltin(builtin("find", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("find", args, 1, 1); err != nil {
			return nil, err
		}
		arr, err := runtime.ToArray(args[0])
		if err != nil {
			return nil, err
		}
		var idxs []complex128
		for i, x := range arr.Flatten() {
			if x != 0 {
				idxs = append(idxs, complex(float64(i+1), 0))
			}
		}
		rows, _ := arr.Dims()
		if rows == 1 {
			return one(runtime.RowVector(idxs)), nil
		}
		return one(runtime.ColVector(idxs)), nil
	}))

	s.reg.RegisterBuiltin(builtin("norm", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("norm", args, 1, 1); err != nil {
			return nil, err
		}
		arr, err := runtime.ToArray(args[0])
		if err != nil {
			return nil, err
		}
		var total float64
		for _, x := range arr.Flatten() {
			total += real(x)*real(x) + imag(x)*imag(x)
		}
		return one(runtime.NewNum(math.Sqrt(total))), nil
	}))

	s.reg.RegisterBuiltin(builtin("det", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("det", args, 1, 1); err != nil {
			return nil, err
		}
		arr, err := runtime.ToArray(args[0])
		if err != nil {
			return nil, err
		}
		d, err := determinant(arr)
		if err != nil {
			return nil, err
		}
		return one(runtime.NewComplex(d)), nil
	}))

	s.reg.RegisterBuiltin(builtin("inv", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("inv", args, 1, 1); err != nil {
			return nil, err
		}
		arr, err := runtime.ToArray(args[0])
		if err != nil {
			return nil, err
		}
		rows, cols := arr.Dims()
		if rows != cols {
			return nil, &runtime.DimensionError{Msg: "Matrix must be square"}
		}
		out, err := runtime.Apply("\\", arr, runtime.Identity(rows))
		if err != nil {
			return nil, err
		}
		return one(out), nil
	}))

	s.reg.RegisterBuiltin(builtin("diag", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("diag", args, 1, 1); err != nil {
			return nil, err
		}
		arr, err := runtime.ToArray(args[0])
		if err != nil {
			return nil, err
		}
		rows, cols := arr.Dims()
		if rows == 1 || cols == 1 {
			flat := arr.Flatten()
			out := runtime.NewDense(len(flat), len(flat))
			var cur runtime.Value = out
			for i, x := range flat {
				idx := []runtime.Value{runtime.NewNum(float64(i + 1)), runtime.NewNum(float64(i + 1))}
				cur, err = runtime.SetIndex(cur, idx, runtime.NewComplex(x))
				if err != nil {
					return nil, err
				}
			}
			return one(cur), nil
		}
		n := rows
		if cols < n {
			n = cols
		}
		vals := make([]complex128, n)
		for i := 1; i <= n; i++ {
			v, err := arr.At(i, i)
			if err != nil {
				return nil, err
			}
			vals[i-1] = v
		}
		return one(runtime.ColVector(vals)), nil
	}))
}

// determinant runs elimination with partial pivoting, tracking row-swap
// parity.
func determinant(a *runtime.Array) (complex128, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return 0, &runtime.DimensionError{Msg: "Matrix must be square"}
	}
	n := rows
	m := a.ToDense().Flatten()
	det := complex128(1)
	for col := 0; col < n; col++ {
		pivot := col
		best := cmplx.Abs(m[col*n+col])
		for r := col + 1; r < n; r++ {
			if mag := cmplx.Abs(m[col*n+r]); mag > best {
				best = mag
				pivot = r
			}
		}
		if best == 0 {
			return 0, nil
		}
		if pivot != col {
			for c := 0; c < n; c++ {
				m[c*n+pivot], m[c*n+col] = m[c*n+col], m[c*n+pivot]
			}
			det = -det
		}
		det *= m[col*n+col]
		inv := 1 / m[col*n+col]
		for r := col + 1; r < n; r++ {
			factor := m[col*n+r] * inv
			for c := col; c < n; c++ {
				m[c*n+r] -= factor * m[c*n+col]
			}
		}
	}
	return det, nil
}

//-----------------------------------------------------------------------------
// Strings and output
//-----------------------------------------------------------------------------

func (s *Session) installStrings() {
	s.reg.RegisterBuiltin(builtin("disp", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("disp", args, 1, 1); err != nil {
			return nil, err
		}
		s.println(runtime.FormatValue(args[0]))
		return nil, nil
	}))

	s.reg.RegisterBuiltin(builtin("num2str", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("num2str", args, 1, 1); err != nil {
			return nil, err
		}
		return one(runtime.NewStr(runtime.FormatValue(args[0]))), nil
	}))

	s.reg.RegisterBuiltin(builtin("str2num", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("str2num", args, 1, 1); err != nil {
			return nil, err
		}
		text, err := runtime.AsString(args[0])
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return one(runtime.Empty()), nil
		}
		return one(runtime.NewNum(f)), nil
	}))

	cmp := func(name string, fold bool) {
		s.reg.RegisterBuiltin(builtin(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if err := nargchk(name, args, 2, 2); err != nil {
				return nil, err
			}
			a, errA := runtime.AsString(args[0])
			b, errB := runtime.AsString(args[1])
			if errA != nil || errB != nil {
				return one(runtime.Bool(false)), nil
			}
			if fold {
				return one(runtime.Bool(strings.EqualFold(a, b))), nil
			}
			return one(runtime.Bool(a == b)), nil
		}))
	}
	cmp("strcmp", false)
	cmp("strcmpi", true)

	caseFn := func(name string, f func(string) string) {
		s.reg.RegisterBuiltin(builtin(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			if err := nargchk(name, args, 1, 1); err != nil {
				return nil, err
			}
			text, err := runtime.AsString(args[0])
			if err != nil {
				return nil, err
			}
			return one(runtime.NewStr(f(text))), nil
		}))
	}
	caseFn("upper", strings.ToUpper)
	caseFn("lower", strings.ToLower)
	caseFn("strtrim", strings.TrimSpace)

	s.reg.RegisterBuiltin(builtin("strcat", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		var b strings.Builder
		for _, arg := range args {
			text, err := runtime.AsString(arg)
			if err != nil {
				return nil, err
			}
			b.WriteString(text)
		}
		return one(runtime.NewStr(b.String())), nil
	}))

	s.reg.RegisterBuiltin(builtin("sprintf", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("sprintf", args, 1, -1); err != nil {
			return nil, err
		}
		text, err := formatPrintf(args)
		if err != nil {
			return nil, err
		}
		return one(runtime.NewStr(text)), nil
	}))

	s.reg.RegisterBuiltin(builtin("fprintf", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("fprintf", args, 1, -1); err != nil {
			return nil, err
		}
		text, err := formatPrintf(args)
		if err != nil {
			return nil, err
		}
		s.print(text)
		return nil, nil
	}))

	s.reg.RegisterBuiltin(builtin("error", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("error", args, 1, -1); err != nil {
			return nil, err
		}
		text, err := formatPrintf(args)
		if err != nil {
			return nil, err
		}
		return nil, &runtime.TypeError{Msg: text}
	}))

	s.reg.RegisterBuiltin(builtin("warning", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("warning", args, 1, -1); err != nil {
			return nil, err
		}
		text, err := formatPrintf(args)
		if err != nil {
			return nil, err
		}
		s.println("Warning: " + text)
		return nil, nil
	}))

	s.reg.RegisterBuiltin(builtin("deal", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if nargout < 1 {
			nargout = 1
		}
		out := make([]runtime.Value, nargout)
		switch len(args) {
		case 0:
			return nil, &runtime.ArgumentError{Msg: "Not enough input arguments to 'deal'"}
		case 1:
			for i := range out {
				out[i] = args[0].Copy()
			}
		default:
			if len(args) < nargout {
				return nil, &runtime.ArgumentError{Msg: "deal: output count exceeds input count"}
			}
			for i := range out {
				out[i] = args[i].Copy()
			}
		}
		return out, nil
	}))
}

// formatPrintf renders a printf-style format with the dialect's escape and
// verb conventions mapped onto Go's.
func formatPrintf(args []runtime.Value) (string, error) {
	format, err := runtime.AsString(args[0])
	if err != nil {
		return "", err
	}
	format = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`).Replace(format)

	rest := args[1:]
	var b strings.Builder
	argIdx := 0
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			b.WriteByte('%')
			i++
			continue
		}
		// Scan the verb: flags, width, precision, conversion.
		j := i + 1
		for j < len(format) && strings.IndexByte("+-# 0123456789.", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			b.WriteByte('%')
			break
		}
		verb := format[j]
		spec := format[i : j+1]
		if argIdx >= len(rest) {
			return "", &runtime.ArgumentError{Msg: "Not enough arguments for format"}
		}
		arg := rest[argIdx]
		argIdx++
		switch verb {
		case 'd', 'i':
			f, err := runtime.AsReal(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(fmt.Sprintf(strings.Replace(spec, string(verb), "d", 1), int64(f)))
		case 'f', 'e', 'g', 'E', 'G':
			f, err := runtime.AsReal(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(fmt.Sprintf(spec, f))
		case 's':
			text, err := runtime.AsString(arg)
			if err != nil {
				text = runtime.FormatValue(arg)
			}
			b.WriteString(fmt.Sprintf(spec, text))
		default:
			return "", &runtime.ArgumentError{Msg: fmt.Sprintf("Unsupported format verb %%%c", verb)}
		}
		i = j
	}
	return b.String(), nil
}

//-----------------------------------------------------------------------------
// Environment commands
//-----------------------------------------------------------------------------

func (s *Session) installCommands() {
	noop := func(name string) {
		s.reg.RegisterBuiltin(command(name, func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
			return nil, nil
		}))
	}
	// Graphics-adjacent commands are accepted and ignored: buffers that
	// drive plotting still execute headless.
	for _, name := range []string{
		"clc", "clf", "cla", "drawnow", "figure", "shg",
		"axis", "shading", "lighting", "view", "grid", "box",
	} {
		noop(name)
	}

	s.reg.RegisterBuiltin(command("hold", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		switch {
		case len(args) == 0:
			s.holdOn = !s.holdOn
		default:
			state, err := runtime.AsString(args[0])
			if err != nil {
				return nil, err
			}
			switch state {
			case "on":
				s.holdOn = true
			case "off":
				s.holdOn = false
			default:
				return nil, &runtime.ArgumentError{Msg: "hold accepts 'on' or 'off'"}
			}
		}
		return nil, nil
	}))

	s.reg.RegisterBuiltin(command("format", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if len(args) == 0 {
			s.format = "short"
			return nil, nil
		}
		mode, err := runtime.AsString(args[0])
		if err != nil {
			return nil, err
		}
		s.format = mode
		return nil, nil
	}))

	s.reg.RegisterBuiltin(command("clear", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if len(args) == 0 {
			s.ClearUser()
			return nil, nil
		}
		names := make([]string, 0, len(args))
		for _, arg := range args {
			name, err := runtime.AsString(arg)
			if err != nil {
				return nil, err
			}
			if name == "all" {
				s.ClearUser()
				s.reg.ClearUserFunctions()
				return nil, nil
			}
			names = append(names, name)
		}
		s.ClearNames(names)
		return nil, nil
	}))

	s.reg.RegisterBuiltin(command("tic", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		s.ticStart = time.Now()
		return nil, nil
	}))

	s.reg.RegisterBuiltin(command("toc", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if s.ticStart.IsZero() {
			return nil, &runtime.ArgumentError{Msg: "toc called without a matching tic"}
		}
		elapsed := time.Since(s.ticStart).Seconds()
		return one(runtime.NewNum(elapsed)), nil
	}))

	s.reg.RegisterBuiltin(command("pwd", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		return one(runtime.NewStr(s.paths.cwd)), nil
	}))

	s.reg.RegisterBuiltin(command("who", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		names := s.ws.Names()
		if len(names) == 0 {
			return nil, nil
		}
		s.println("Your variables are:")
		s.println(strings.Join(names, "  "))
		return nil, nil
	}))

	s.reg.RegisterBuiltin(command("whos", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		names := s.ws.Names()
		for _, name := range names {
			v, ok := s.ws.Lookup(name)
			if !ok {
				continue
			}
			s.println(fmt.Sprintf("  %-12s %-8s %s", name, runtime.SizeString(v), runtime.TypeName(v)))
		}
		return nil, nil
	}))

	s.reg.RegisterBuiltin(builtin("exist", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("exist", args, 1, 1); err != nil {
			return nil, err
		}
		name, err := runtime.AsString(args[0])
		if err != nil {
			return nil, err
		}
		if _, ok := s.ws.Lookup(name); ok {
			return one(runtime.NewNum(1)), nil
		}
		if s.paths.Find(name) != "" {
			return one(runtime.NewNum(2)), nil
		}
		if s.reg.IsBuiltin(name) {
			return one(runtime.NewNum(5)), nil
		}
		if _, ok := s.reg.Resolve(name); ok {
			return one(runtime.NewNum(2)), nil
		}
		return one(runtime.NewNum(0)), nil
	}))

	s.reg.RegisterBuiltin(builtin("addpath", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("addpath", args, 1, -1); err != nil {
			return nil, err
		}
		for _, arg := range args {
			dir, err := runtime.AsString(arg)
			if err != nil {
				return nil, err
			}
			s.paths.AddPath(dir)
		}
		s.reg.ResetAttempts()
		return nil, nil
	}))

	s.reg.RegisterBuiltin(builtin("rmpath", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		if err := nargchk("rmpath", args, 1, -1); err != nil {
			return nil, err
		}
		for _, arg := range args {
			dir, err := runtime.AsString(arg)
			if err != nil {
				return nil, err
			}
			s.paths.RemovePath(dir)
		}
		s.reg.ResetAttempts()
		return nil, nil
	}))

	s.reg.RegisterBuiltin(command("path", func(args []runtime.Value, nargout int) ([]runtime.Value, error) {
		for _, dir := range s.paths.Dirs() {
			s.println(dir)
		}
		return nil, nil
	}))
}
