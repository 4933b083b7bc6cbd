// Package vmdebug formats qualified names for error messages, grounded on
// wazero's internal/wasmdebug.FuncName: a small, dependency-free formatter
// used only at error-reporting call sites, never on the hot path.
package vmdebug

import (
	"strconv"
	"strings"
)

// QualifiedFuncName renders "seg1::seg2::...::fn".
func QualifiedFuncName(module []string, fn string) string {
	var b strings.Builder
	for _, seg := range module {
		b.WriteString(seg)
		b.WriteString("::")
	}
	b.WriteString(fn)
	return b.String()
}

// QualifiedCtorName renders "seg1::...::Datatype::Ctor".
func QualifiedCtorName(module []string, datatype, ctor string) string {
	return QualifiedFuncName(module, datatype) + "::" + ctor
}

// AtIP appends the current instruction offset to a message, the way
// runtime type errors are reported per spec.md §7: qualified function name
// plus ip.
func AtIP(funcQualifiedName string, ip int) string {
	return funcQualifiedName + " at ip " + strconv.Itoa(ip)
}
