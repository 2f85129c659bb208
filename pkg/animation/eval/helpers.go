package eval

import (
	"math"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"

	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/stl/validator"
)

// helperFunc implements one helper. Arguments are already evaluated and
// their count checked against the schema.
type helperFunc func(e *Evaluator, args []Value) (Value, error)

// functionArity is shared with static validation so both agree on the
// helper namespace.
var functionArity = validator.DefaultSchema().Functions

var helpers = map[string]helperFunc{
	"abs":   numeric(math.Abs),
	"ceil":  numeric(math.Ceil),
	"floor": numeric(math.Floor),
	"round": round,
	"clamp": clamp,
	"min":   extreme(-1),
	"max":   extreme(1),

	"len":   length,
	"lower": textCase(func() cases.Caser { return cases.Lower(language.Und) }),
	"upper": textCase(func() cases.Caser { return cases.Upper(language.Und) }),
	"title": textCase(func() cases.Caser { return cases.Title(language.Und) }),

	"contains": func(_ *Evaluator, args []Value) (Value, error) {
		return contains(args[0], args[1])
	},
	"starts_with": func(e *Evaluator, args []Value) (Value, error) {
		return e.apply(ast.OperatorStartsWith, args[0], args[1])
	},
	"ends_with": func(e *Evaluator, args []Value) (Value, error) {
		return e.apply(ast.OperatorEndsWith, args[0], args[1])
	},
	"matches": func(e *Evaluator, args []Value) (Value, error) {
		return e.matches(args[0], args[1])
	},

	"between":  between,
	"coalesce": coalesce,
	"is_null": func(_ *Evaluator, args []Value) (Value, error) {
		return Bool(args[0].IsNull()), nil
	},
	"count": count,

	"mean":     aggregate(func(xs []float64) float64 { return stat.Mean(xs, nil) }),
	"stddev":   aggregate(stddev),
	"median":   aggregate(median),
	"quantile": quantile,
}

func numberArg(args []Value, i int) (float64, error) {
	f, ok := args[i].Number()
	if !ok {
		return 0, mismatch("argument %d must be a number, got %s", i+1, args[i].Kind())
	}
	return f, nil
}

// numbers extracts a list of numbers.
func numbers(v Value) ([]float64, error) {
	items, ok := v.Items()
	if !ok {
		return nil, mismatch("expected a list of numbers, got %s", v.Kind())
	}
	xs := make([]float64, len(items))
	for i, item := range items {
		f, ok := item.Number()
		if !ok {
			return nil, mismatch("list element %d is %s, not a number", i, item.Kind())
		}
		xs[i] = f
	}
	return xs, nil
}

func numeric(fn func(float64) float64) helperFunc {
	return func(_ *Evaluator, args []Value) (Value, error) {
		x, err := numberArg(args, 0)
		if err != nil {
			return Null(), err
		}
		return Number(fn(x)), nil
	}
}

func round(_ *Evaluator, args []Value) (Value, error) {
	x, err := numberArg(args, 0)
	if err != nil {
		return Null(), err
	}
	if len(args) == 1 {
		return Number(math.Round(x)), nil
	}
	digits, err := numberArg(args, 1)
	if err != nil {
		return Null(), err
	}
	if digits < 0 || digits > 15 || digits != math.Trunc(digits) {
		return Null(), invalid("round digits must be an integer in [0, 15], got %v", digits)
	}
	scale := math.Pow(10, digits)
	return Number(math.Round(x*scale) / scale), nil
}

func clamp(_ *Evaluator, args []Value) (Value, error) {
	var xs [3]float64
	for i := range xs {
		f, err := numberArg(args, i)
		if err != nil {
			return Null(), err
		}
		xs[i] = f
	}
	x, lo, hi := xs[0], xs[1], xs[2]
	if lo > hi {
		return Null(), invalid("clamp bounds are inverted: %v > %v", lo, hi)
	}
	return Number(math.Min(math.Max(x, lo), hi)), nil
}

// extreme implements min (sign -1) and max (sign 1) over either one list
// argument or several number arguments.
func extreme(sign float64) helperFunc {
	return func(_ *Evaluator, args []Value) (Value, error) {
		var xs []float64
		if len(args) == 1 && args[0].Kind() == KindList {
			var err error
			if xs, err = numbers(args[0]); err != nil {
				return Null(), err
			}
		} else {
			xs = make([]float64, len(args))
			for i := range args {
				f, err := numberArg(args, i)
				if err != nil {
					return Null(), err
				}
				xs[i] = f
			}
		}
		if len(xs) == 0 {
			return Null(), nil
		}
		best := xs[0]
		for _, x := range xs[1:] {
			if (x-best)*sign > 0 {
				best = x
			}
		}
		return Number(best), nil
	}
}

func length(_ *Evaluator, args []Value) (Value, error) {
	switch v := args[0]; v.Kind() {
	case KindString:
		return Number(float64(utf8.RuneCountInString(v.s))), nil
	case KindList:
		return Number(float64(len(v.list))), nil
	case KindNull:
		return Number(0), nil
	default:
		return Null(), mismatch("len of %s", v.Kind())
	}
}

// textCase builds a case-mapping helper. Casers are stateful, so one is
// created per call.
func textCase(newCaser func() cases.Caser) helperFunc {
	return func(_ *Evaluator, args []Value) (Value, error) {
		v := args[0]
		if v.IsNull() {
			return Null(), nil
		}
		s, ok := v.Str()
		if !ok {
			return Null(), mismatch("expected a string, got %s", v.Kind())
		}
		c := newCaser()
		return String(c.String(s)), nil
	}
}

func between(_ *Evaluator, args []Value) (Value, error) {
	x, err := numberArg(args, 0)
	if err != nil {
		return Null(), err
	}
	lo, err := numberArg(args, 1)
	if err != nil {
		return Null(), err
	}
	hi, err := numberArg(args, 2)
	if err != nil {
		return Null(), err
	}
	return Bool(x >= lo && x <= hi), nil
}

func coalesce(_ *Evaluator, args []Value) (Value, error) {
	for _, v := range args {
		if !v.IsNull() {
			return v, nil
		}
	}
	return Null(), nil
}

// count returns the number of truthy items, or with a second argument the
// number of items equal to it.
func count(_ *Evaluator, args []Value) (Value, error) {
	items, ok := args[0].Items()
	if !ok {
		return Null(), mismatch("count needs a list, got %s", args[0].Kind())
	}
	n := 0
	for _, item := range items {
		if len(args) == 2 {
			if item.Equal(args[1]) {
				n++
			}
		} else if item.Truthy() {
			n++
		}
	}
	return Number(float64(n)), nil
}

// aggregate wraps a statistic over a list of numbers. Empty lists give null.
func aggregate(fn func([]float64) float64) helperFunc {
	return func(_ *Evaluator, args []Value) (Value, error) {
		xs, err := numbers(args[0])
		if err != nil {
			return Null(), err
		}
		if len(xs) == 0 {
			return Null(), nil
		}
		return Number(fn(xs)), nil
	}
}

// stddev is the sample standard deviation; a single value has none.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// median averages the two middle values of an even-length list;
// stat.Quantile(0.5, stat.Empirical, ...) would return the lower one.
func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// quantile returns the empirical quantile: the smallest value whose
// cumulative share reaches p.
func quantile(_ *Evaluator, args []Value) (Value, error) {
	xs, err := numbers(args[0])
	if err != nil {
		return Null(), err
	}
	p, err := numberArg(args, 1)
	if err != nil {
		return Null(), err
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return Null(), invalid("quantile must be in [0, 1], got %v", p)
	}
	if len(xs) == 0 {
		return Null(), nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return Number(stat.Quantile(p, stat.Empirical, sorted, nil)), nil
}
