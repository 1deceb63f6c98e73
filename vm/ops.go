package vm

import (
	"fmt"
	"math"
)

// floatEpsilon is the tolerance used when comparing Floats for equality.
const floatEpsilon = 1e-9

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------
//
// Promotion ladder for binary operators:
//   - Integer op Integer stays Integer (wraps, truncated division)
//   - any other pair of numbers widens both sides to Float
//   - String + String concatenates
//   - everything else is a type mismatch and yields Null
//
// Every function returns a usable Value even when it also returns an error;
// the error is a degraded diagnostic, not a reason to stop.

type arithOp uint8

const (
	arithAdd arithOp = iota
	arithSub
	arithMul
	arithDiv
	arithMod
)

var arithSymbols = [...]string{"+", "-", "*", "/", "%"}

// Add returns a + b.
func Add(a, b Value) (Value, error) { return arith(arithAdd, a, b) }

// Sub returns a - b.
func Sub(a, b Value) (Value, error) { return arith(arithSub, a, b) }

// Mul returns a * b.
func Mul(a, b Value) (Value, error) { return arith(arithMul, a, b) }

// Div returns a / b. An Integer zero divisor yields Null and ErrDivideByZero.
func Div(a, b Value) (Value, error) { return arith(arithDiv, a, b) }

// Mod returns a % b. An Integer zero divisor yields Null and ErrDivideByZero.
func Mod(a, b Value) (Value, error) { return arith(arithMod, a, b) }

func arith(op arithOp, a, b Value) (Value, error) {
	// Integer zero divisor is checked before the type ladder, so 1.5 / 0
	// is an error while 1.5 / 0.0 is +Inf.
	if (op == arithDiv || op == arithMod) && b.kind == KindInt && b.i == 0 {
		return Null(), ErrDivideByZero
	}

	switch {
	case a.kind == KindInt && b.kind == KindInt:
		switch op {
		case arithAdd:
			return Int(a.i + b.i), nil
		case arithSub:
			return Int(a.i - b.i), nil
		case arithMul:
			return Int(a.i * b.i), nil
		case arithDiv:
			return Int(a.i / b.i), nil
		default:
			return Int(a.i % b.i), nil
		}

	case a.IsNumber() && b.IsNumber():
		x, y := a.toFloat(), b.toFloat()
		switch op {
		case arithAdd:
			return Float(x + y), nil
		case arithSub:
			return Float(x - y), nil
		case arithMul:
			return Float(x * y), nil
		case arithDiv:
			return Float(x / y), nil
		default:
			return Float(math.Mod(x, y)), nil
		}

	case op == arithAdd && a.kind == KindString && b.kind == KindString:
		return Str(a.s + b.s), nil
	}

	return Null(), fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, a.kind, arithSymbols[op], b.kind)
}

// Neg returns -a for numbers and Null otherwise.
func Neg(a Value) (Value, error) {
	switch a.kind {
	case KindInt:
		return Int(-a.i), nil
	case KindFloat:
		return Float(-a.f), nil
	}
	return Null(), fmt.Errorf("%w: -%s", ErrTypeMismatch, a.kind)
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// Equal reports whether a and b are equal. Values of different kinds are
// never equal, and neither are Null, List or Dict values, even to themselves.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return math.Abs(a.f-b.f) < floatEpsilon
	case KindString:
		return a.s == b.s
	case KindBool:
		return a.b == b.b
	default:
		return false
	}
}

// Less reports a < b. Non-numeric operands compare false.
func Less(a, b Value) bool {
	if a.kind == KindInt && b.kind == KindInt {
		return a.i < b.i
	}
	if a.IsNumber() && b.IsNumber() {
		return a.toFloat() < b.toFloat()
	}
	return false
}

// Greater reports a > b. Non-numeric operands compare false.
func Greater(a, b Value) bool { return Less(b, a) }

// LessEqual reports a <= b, treating Floats within tolerance as equal.
func LessEqual(a, b Value) bool { return Less(a, b) || approxEqual(a, b) }

// GreaterEqual reports a >= b, treating Floats within tolerance as equal.
func GreaterEqual(a, b Value) bool { return Less(b, a) || approxEqual(a, b) }

// approxEqual compares two numbers after widening.
func approxEqual(a, b Value) bool {
	if a.kind == KindInt && b.kind == KindInt {
		return a.i == b.i
	}
	if a.IsNumber() && b.IsNumber() {
		return math.Abs(a.toFloat()-b.toFloat()) < floatEpsilon
	}
	return false
}

// ---------------------------------------------------------------------------
// Logic
// ---------------------------------------------------------------------------

// Truthy reports whether v counts as true in a condition: true Bools and
// non-zero Integers. Everything else is falsy.
func Truthy(v Value) bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	default:
		return false
	}
}

// And returns the Bool conjunction of the operands' truthiness.
func And(a, b Value) Value { return Bool(Truthy(a) && Truthy(b)) }

// Or returns the Bool disjunction of the operands' truthiness.
func Or(a, b Value) Value { return Bool(Truthy(a) || Truthy(b)) }

// Not returns the Bool negation of v's truthiness.
func Not(v Value) Value { return Bool(!Truthy(v)) }
