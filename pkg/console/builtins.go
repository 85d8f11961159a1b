package console

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/cota/pkg/viewer"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms Cota console source before passing it to
// zygomys. It performs three transformations:
//
//  1. Kebab-case to underscore: load-las -> load_las
//     zygomys does not allow hyphens in identifiers (it reads them as
//     subtraction), so kebab-case command names are rewritten to the
//     underscore form the builtins are registered under.
//
//  2. ; line comments become // comments, which is the form zygomys reads.
//
//  3. Keyword conversion: :keyword -> "__kw_keyword" (string literal),
//     which lets commands accept :name where a label string is expected
//     without registering every keyword as a global symbol.
//
// All three transformations leave string literal contents untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Copy double-quoted string literals verbatim.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Copy backtick-quoted string literals verbatim.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Rewrite ; and ;; line comments to //.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Rewrite :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Leave := (assignment operator) alone.
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Rewrite kebab-case identifiers: point-size -> point_size.
		// Only when the hyphen sits between identifier characters, so a
		// minus operator like (- 5 2) is untouched.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpMeasurement wraps a completed measurement so (pick ...) can return it
// as a console value.
type sexpMeasurement struct {
	m *viewer.Measurement
}

func (s *sexpMeasurement) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(measurement :distance %.3f :height %.3f)", s.m.Distance, s.m.HeightDiff)
}
func (s *sexpMeasurement) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a Sexp. A float value is accepted when it
// is a whole number.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected whole number, got %s", s.SexpString(nil))
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toLabel extracts a layer label from a Sexp. Handles both plain strings
// ("ground.las") and preprocessed keywords (:ground for a layer named
// ground, when labels carry no extension).
func toLabel(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected layer label, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the viewer commands into a zygomys environment.
// The builtins drive the session's controller, so every one of them checks
// the session guard first and refuses to run once the session is abandoned.
//
// Source code must be preprocessed with preprocessSource() before evaluation
// so kebab-case command names reach their underscore registrations.
func registerBuiltins(env *zygo.Zlisp, sess *session) {

	// -----------------------------------------------------------------------
	// (load-las "scan-a.las" "scan-b.las" ...)
	// -----------------------------------------------------------------------
	env.AddFunction("load_las", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := sess.guard(); err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("load-las requires at least one path")
		}

		paths := make([]string, 0, len(args))
		for i, a := range args {
			p, err := toString(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("load-las: path %d: %w", i+1, err)
			}
			paths = append(paths, p)
		}

		res := sess.ctrl.LoadFiles(paths)
		for _, l := range res.Loaded {
			sess.printf("loaded %s (%d points)", l.Label, l.PointCount)
		}
		for _, e := range res.Errors {
			sess.printf("error: %v", e)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (layers)
	// -----------------------------------------------------------------------
	env.AddFunction("layers", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := sess.guard(); err != nil {
			return zygo.SexpNull, err
		}

		layers := sess.ctrl.Layers()
		if len(layers) == 0 {
			sess.printf("no layers loaded")
			return zygo.SexpNull, nil
		}
		for _, l := range layers {
			mark := " "
			if l.Visible {
				mark = "x"
			}
			sess.printf("[%s] %s  %d points  %s", mark, l.Label, l.PointCount, l.Path)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (show "scan.las") / (hide "scan.las")
	// -----------------------------------------------------------------------
	env.AddFunction("show", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return setVisible(sess, "show", args, true)
	})
	env.AddFunction("hide", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return setVisible(sess, "hide", args, false)
	})

	// -----------------------------------------------------------------------
	// (toggle "scan.las")
	// -----------------------------------------------------------------------
	env.AddFunction("toggle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := sess.guard(); err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("toggle requires a layer label")
		}
		label, err := toLabel(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("toggle: %w", err)
		}

		on, err := sess.ctrl.FlipLayer(label)
		if err != nil {
			return zygo.SexpNull, err
		}
		if on {
			sess.printf("%s visible", label)
		} else {
			sess.printf("%s hidden", label)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (remove "scan.las")
	// -----------------------------------------------------------------------
	env.AddFunction("remove", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := sess.guard(); err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove requires a layer label")
		}
		label, err := toLabel(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove: %w", err)
		}

		if err := sess.ctrl.RemoveLayer(label); err != nil {
			return zygo.SexpNull, err
		}
		sess.printf("removed %s", label)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (point-size 7), (point-size) to query
	// -----------------------------------------------------------------------
	env.AddFunction("point_size", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := sess.guard(); err != nil {
			return zygo.SexpNull, err
		}

		if len(args) == 0 {
			sess.printf("point size: %d", sess.ctrl.Scene().PointSize)
			return zygo.SexpNull, nil
		}

		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point-size: %w", err)
		}
		if err := sess.ctrl.SetPointSize(n); err != nil {
			return zygo.SexpNull, err
		}
		sess.printf("point size: %d", n)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (pick 12.5 3.0 101.25)
	// -----------------------------------------------------------------------
	env.AddFunction("pick", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := sess.guard(); err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("pick requires exactly 3 coordinates, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pick: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pick: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pick: z: %w", err)
		}

		m := sess.ctrl.PickPoint(v3.Vec{X: x, Y: y, Z: z})
		if m == nil {
			sess.printf("first point picked, pick a second point to measure")
			return zygo.SexpNull, nil
		}
		sess.printf("distance: %.3f, height difference: %.3f", m.Distance, m.HeightDiff)
		return &sexpMeasurement{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (classify)
	// -----------------------------------------------------------------------
	env.AddFunction("classify", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := sess.guard(); err != nil {
			return zygo.SexpNull, err
		}
		sess.printf("%s", sess.ctrl.Classify())
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (stats)
	// -----------------------------------------------------------------------
	env.AddFunction("stats", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := sess.guard(); err != nil {
			return zygo.SexpNull, err
		}

		layers := sess.ctrl.Layers()
		visible, total, shown := 0, 0, 0
		for _, l := range layers {
			total += l.PointCount
			if l.Visible {
				visible++
				shown += l.PointCount
			}
		}
		sess.printf("layers: %d loaded, %d visible", len(layers), visible)
		sess.printf("points: %d total, %d in view", total, shown)

		snap := sess.ctrl.Scene()
		if snap.PointTotal() > 0 {
			b := snap.Bounds
			sess.printf("bounds: x [%.3f, %.3f] y [%.3f, %.3f] z [%.3f, %.3f]",
				b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z)
		}
		sess.printf("files loaded this session: %d", len(sess.ctrl.History()))
		return zygo.SexpNull, nil
	})
}

// setVisible implements the shared body of (show ...) and (hide ...).
func setVisible(sess *session, name string, args []zygo.Sexp, on bool) (zygo.Sexp, error) {
	if err := sess.guard(); err != nil {
		return zygo.SexpNull, err
	}
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("%s requires a layer label", name)
	}
	label, err := toLabel(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
	}

	if err := sess.ctrl.ToggleLayer(label, on); err != nil {
		return zygo.SexpNull, err
	}
	if on {
		sess.printf("showing %s", label)
	} else {
		sess.printf("hiding %s", label)
	}
	return zygo.SexpNull, nil
}
