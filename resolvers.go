package rtengine

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/randtable/rtengine/internal"
)

// DiceResolver evaluates a "dice:" expression's raw text and returns its
// rendered result (spec §4.2). Engines may plug in a custom resolver via
// WithDiceResolver to support richer notations than the default "NdM+K".
type DiceResolver interface {
	RollDice(expr string) (string, error)
}

// MathResolver evaluates a "math:" expression's raw text, given a scope
// that resolves "$var"/"@placeholder" references to strings, and returns
// its rendered result (spec §4.2).
type MathResolver interface {
	EvalMath(expr string, scope internal.CondScope) (string, error)
}

// DefaultDiceResolver implements the common tabletop "NdM+K" / "NdM-K"
// notation directly on math/rand/v2: no pack example ships a dice-notation
// parser, and this is a small, self-contained numeric concern with no
// natural third-party home.
type DefaultDiceResolver struct{}

func (DefaultDiceResolver) RollDice(expr string) (string, error) {
	n, sides, modifier, err := parseDiceExpr(expr)
	if err != nil {
		return "", NewDiceResolverError(expr, err)
	}
	total := modifier
	for i := 0; i < n; i++ {
		total += rand.IntN(sides) + 1
	}
	return strconv.Itoa(total), nil
}

// parseDiceExpr parses "NdM", "NdM+K" or "NdM-K".
func parseDiceExpr(expr string) (n, sides, modifier int, err error) {
	s := strings.TrimSpace(expr)
	dIdx := strings.IndexByte(s, 'd')
	if dIdx < 0 {
		dIdx = strings.IndexByte(s, 'D')
	}
	if dIdx < 0 {
		return 0, 0, 0, fmt.Errorf("invalid dice expression %q: missing 'd'", expr)
	}
	nPart := strings.TrimSpace(s[:dIdx])
	if nPart == "" {
		n = 1
	} else {
		n, err = strconv.Atoi(nPart)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dice count in %q: %w", expr, err)
		}
	}

	rest := s[dIdx+1:]
	plusIdx := strings.IndexByte(rest, '+')
	minusIdx := strings.IndexByte(rest, '-')
	switch {
	case plusIdx >= 0:
		sides, err = strconv.Atoi(strings.TrimSpace(rest[:plusIdx]))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dice sides in %q: %w", expr, err)
		}
		modifier, err = strconv.Atoi(strings.TrimSpace(rest[plusIdx+1:]))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dice modifier in %q: %w", expr, err)
		}
	case minusIdx >= 0:
		sides, err = strconv.Atoi(strings.TrimSpace(rest[:minusIdx]))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dice sides in %q: %w", expr, err)
		}
		var mod int
		mod, err = strconv.Atoi(strings.TrimSpace(rest[minusIdx+1:]))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dice modifier in %q: %w", expr, err)
		}
		modifier = -mod
	default:
		sides, err = strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dice sides in %q: %w", expr, err)
		}
	}
	if n <= 0 || sides <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid dice expression %q: count and sides must be positive", expr)
	}
	return n, sides, modifier, nil
}

// DefaultMathResolver delegates to the core package's hand-rolled
// four-function expression evaluator (internal/mathexpr.go), itself
// grounded on the teacher's expression-tokenizer idiom.
type DefaultMathResolver struct{}

func (DefaultMathResolver) EvalMath(expr string, scope internal.CondScope) (string, error) {
	v, err := internal.EvalMath(expr, scope)
	if err != nil {
		return "", NewMathEvalError(expr, err)
	}
	return internal.FormatMathResult(v), nil
}
