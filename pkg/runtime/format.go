package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// formatReal renders a real number the compact way: integers without a
// decimal point, everything else with up to four fractional digits.
func formatReal(f float64) string {
	if math.IsInf(f, 1) {
		return "Inf"
	}
	if math.IsInf(f, -1) {
		return "-Inf"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if math.Abs(f) >= 1e5 || (f != 0 && math.Abs(f) < 1e-4) {
		return strconv.FormatFloat(f, 'e', 4, 64)
	}
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// FormatScalar renders one complex scalar.
func FormatScalar(v complex128) string {
	if imag(v) == 0 {
		return formatReal(real(v))
	}
	im := imag(v)
	sign := "+"
	if im < 0 || math.Signbit(im) {
		sign = "-"
		im = -im
	}
	if real(v) == 0 {
		if sign == "-" {
			return "-" + formatReal(im) + "i"
		}
		return formatReal(im) + "i"
	}
	return fmt.Sprintf("%s %s %si", formatReal(real(v)), sign, formatReal(im))
}

// FormatValue renders a value body without the `name =` prefix.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case *Num:
		return FormatScalar(val.V)
	case *Str:
		return val.V
	case *Array:
		return formatArray(val)
	case *Cell:
		return formatCell(val)
	case *Struct:
		return formatStruct(val)
	case *Callable:
		return "@" + val.Name
	case *Object:
		return fmt.Sprintf("<%s object>", val.Class)
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

// Display renders the `name = value` echo line. Scalars and strings stay on
// one line; matrices get a row per matrix row with right-aligned columns.
func Display(name string, v Value) string {
	body := FormatValue(v)
	if strings.Contains(body, "\n") {
		return name + " =\n" + body
	}
	return name + " = " + body
}

func formatArray(a *Array) string {
	if a.IsEmpty() {
		return "[]"
	}
	if a.Sparse {
		return formatSparse(a)
	}
	if a.nd != nil {
		return formatPages(a)
	}
	if a.NumEl() == 1 {
		return FormatScalar(a.Flatten()[0])
	}

	cells := make([][]string, a.rows)
	width := 0
	for r := 0; r < a.rows; r++ {
		cells[r] = make([]string, a.cols)
		for c := 0; c < a.cols; c++ {
			s := FormatScalar(a.at(r, c))
			cells[r][c] = s
			if len(s) > width {
				width = len(s)
			}
		}
	}

	var b strings.Builder
	for r := 0; r < a.rows; r++ {
		for c := 0; c < a.cols; c++ {
			fmt.Fprintf(&b, "   %*s", width, cells[r][c])
		}
		if r < a.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// formatPages renders an array of rank three or above one 2-D page at a
// time, each headed by its trailing subscripts.
func formatPages(a *Array) string {
	dims := a.Shape()
	pageLen := dims[0] * dims[1]
	npages := a.NumEl() / pageLen

	var b strings.Builder
	for p := 0; p < npages; p++ {
		page := &Array{
			rows: dims[0],
			cols: dims[1],
			data: a.data[p*pageLen : (p+1)*pageLen],
		}
		fmt.Fprintf(&b, "(:,:%s) =\n%s", pageHead(p, dims[2:]), formatArray(page))
		if p < npages-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func pageHead(p int, dims []int) string {
	var b strings.Builder
	for _, d := range dims {
		fmt.Fprintf(&b, ",%d", p%d+1)
		p /= d
	}
	return b.String()
}

// formatSparse lists nonzeros as (row,col) value triplets in column-major
// order, the conventional sparse display.
func formatSparse(a *Array) string {
	keys := a.NonzeroKeys()
	if len(keys) == 0 {
		return fmt.Sprintf("All zero sparse: %dx%d", a.rows, a.cols)
	}
	var b strings.Builder
	for i, k := range keys {
		fmt.Fprintf(&b, "   (%d,%d)   %s", k[0]+1, k[1]+1, FormatScalar(a.nz[k]))
		if i < len(keys)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func formatCell(c *Cell) string {
	parts := make([]string, len(c.Items))
	for i, it := range c.Items {
		if s, ok := it.(*Str); ok {
			parts[i] = "'" + s.V + "'"
		} else {
			parts[i] = strings.ReplaceAll(FormatValue(it), "\n", " ")
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatStruct(s *Struct) string {
	if len(s.Order) == 0 {
		return "struct with no fields"
	}
	var b strings.Builder
	for i, name := range s.Order {
		body := strings.ReplaceAll(FormatValue(s.Fields[name]), "\n", " ")
		fmt.Fprintf(&b, "    %s: %s", name, body)
		if i < len(s.Order)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// SizeString renders the `RxC` shape used by whos-style listings.
func SizeString(v Value) string {
	switch val := v.(type) {
	case *Num:
		return "1x1"
	case *Str:
		return fmt.Sprintf("1x%d", len(val.V))
	case *Array:
		parts := make([]string, 0, val.NDims())
		for _, d := range val.Shape() {
			parts = append(parts, strconv.Itoa(d))
		}
		return strings.Join(parts, "x")
	case *Cell:
		return fmt.Sprintf("%dx%d", val.Rows, val.Cols)
	default:
		return "1x1"
	}
}
