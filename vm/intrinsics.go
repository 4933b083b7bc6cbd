package vm

import (
	"fmt"

	"github.com/adtvm/adtvm/heap"
	"github.com/adtvm/adtvm/internal/vmerr"
)

// execIntrinsic runs one Prelude callable inline: no frame is pushed, per
// spec.md §4.3.
func (m *Machine) execIntrinsic(f *frame, name string, argc int) error {
	switch name {
	case "print":
		return m.intrinsicPrint(f, argc)
	case "+", "-", "*", "/":
		return m.intrinsicArithmetic(f, name, argc)
	case ">", "<", ">=", "<=", "==", "!=":
		return m.intrinsicCompare(f, name, argc)
	default:
		return fmt.Errorf("vm BUG: unresolved intrinsic %q reached execution", name)
	}
}

// intrinsicPrint pops argc values and prints each on its own line,
// in pop order (the last argument pushed prints first), grounded on the
// original implementation's direct pop-and-println loop.
func (m *Machine) intrinsicPrint(f *frame, argc int) error {
	for i := 0; i < argc; i++ {
		p, ok := f.pop()
		if !ok {
			return vmerr.ErrStackUnderflow
		}
		fmt.Fprintln(m.stdout, m.render(p))
	}
	return nil
}

// intrinsicArithmetic folds argc popped integers left with op, in
// pop-order (right-to-left of the arguments as written), per spec.md
// §4.3.
func (m *Machine) intrinsicArithmetic(f *frame, op string, argc int) error {
	if argc < 1 {
		return vmerr.ErrEmptyArithmeticFold
	}
	vals := make([]int64, argc)
	for i := 0; i < argc; i++ {
		p, ok := f.pop()
		if !ok {
			return vmerr.ErrStackUnderflow
		}
		v := m.heap.Get(p)
		if v.Kind != heap.KindInt {
			return vmerr.ErrNotInt
		}
		vals[i] = v.Int
	}

	acc := vals[0]
	for i := 1; i < argc; i++ {
		var err error
		acc, err = applyArithmetic(op, acc, vals[i])
		if err != nil {
			return err
		}
	}
	f.push(m.heap.Alloc(heap.Value{Kind: heap.KindInt, Int: acc}))
	return nil
}

func applyArithmetic(op string, a, b int64) (int64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	default:
		return 0, fmt.Errorf("vm BUG: unknown arithmetic intrinsic %q", op)
	}
}

// intrinsicCompare is defined only for argc == 2, per spec.md §4.3.
func (m *Machine) intrinsicCompare(f *frame, op string, argc int) error {
	if argc != 2 {
		return vmerr.ErrWrongArity
	}
	bPtr, ok := f.pop()
	if !ok {
		return vmerr.ErrStackUnderflow
	}
	aPtr, ok := f.pop()
	if !ok {
		return vmerr.ErrStackUnderflow
	}
	aVal := m.heap.Get(aPtr)
	bVal := m.heap.Get(bPtr)
	if aVal.Kind != heap.KindInt || bVal.Kind != heap.KindInt {
		return vmerr.ErrNotInt
	}

	holds, err := applyCompare(op, aVal.Int, bVal.Int)
	if err != nil {
		return err
	}
	result := int64(0)
	if holds {
		result = 1
	}
	f.push(m.heap.Alloc(heap.Value{Kind: heap.KindInt, Int: result}))
	return nil
}

func applyCompare(op string, a, b int64) (bool, error) {
	switch op {
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	default:
		return false, fmt.Errorf("vm BUG: unknown comparison intrinsic %q", op)
	}
}
