package vm

import (
	"strconv"

	"github.com/adtvm/adtvm/heap"
)

// render implements the print intrinsic's textual rendering: Int as
// decimal, Str as its bytes, and everything else as an
// implementation-defined placeholder (spec.md leaves this open). Variant
// renders as its constructor's qualified name plus its field count, which
// is enough to distinguish values at a glance without recursing into
// fields (fields may themselves be unprintable Lambdas).
func (m *Machine) render(p heap.Ptr) string {
	v := m.heap.Get(p)
	switch v.Kind {
	case heap.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case heap.KindStr:
		return v.Str
	case heap.KindModuleFnRef:
		return "<fn " + m.ctx.FunctionQualifiedName(v.Fn) + ">"
	case heap.KindIntrinsic:
		return "<intrinsic " + v.Intrinsic + ">"
	case heap.KindVariant:
		return m.ctx.ConstructorQualifiedName(v.Ctor) + "{" + strconv.Itoa(len(v.Fields)) + "}"
	case heap.KindLambda:
		return "<lambda " + m.ctx.FunctionQualifiedName(v.Fn) + ">"
	default:
		return "<unprintable>"
	}
}
