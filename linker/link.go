// Package linker validates a set of independently produced raw modules,
// assigns dense global indices to every function, datatype and
// constructor, and rewrites symbolic cross-module references in their
// bytecode into direct index-based operands.
//
// The split mirrors wazero's Module.Validate followed by
// Store.Instantiate: a pure checking pass (dependency closure + ADT
// agreement) runs before any index is assigned, so a malformed input set
// never partially allocates indices.
package linker

import (
	"fmt"
	"sort"

	"github.com/adtvm/adtvm/bytecode"
	"github.com/adtvm/adtvm/internal/vmerr"
	"github.com/adtvm/adtvm/rawmodule"
)

// Program is the linked, dense function table. FunctionIndex values from
// the accompanying Context index directly into Functions.
type Program struct {
	Functions [][]bytecode.Op
}

// Link validates modules' mutual dependencies and ADT agreements, assigns
// dense indices, and resolves every module's bytecode against them. modules
// must be in a stable, caller-chosen order: that order is the only input
// to the deterministic index assignment (spec.md's determinism property).
func Link(modules []*rawmodule.Module) (*Program, *Context, error) {
	if err := checkDuplicateModules(modules); err != nil {
		return nil, nil, err
	}
	if err := checkDependencyClosure(modules); err != nil {
		return nil, nil, err
	}
	if err := checkADTAgreement(modules); err != nil {
		return nil, nil, err
	}

	ctx := assignIndices(modules)

	funcs := make([][]bytecode.Op, ctx.FunctionCount())
	for mIdx, m := range modules {
		for _, fnName := range m.SortedFunctionNames() {
			fIdx, _ := ctx.ModuleFnCalled(bytecode.ModuleIndex(mIdx), fnName)
			resolved, err := resolveFunction(bytecode.ModuleIndex(mIdx), m, m.Functions[fnName], ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", rawmodule.QualifiedFunctionName(m.Name, fnName), err)
			}
			funcs[fIdx] = resolved
		}
	}

	if err := sanityCheck(ctx, funcs); err != nil {
		return nil, nil, err
	}

	return &Program{Functions: funcs}, ctx, nil
}

func checkDuplicateModules(modules []*rawmodule.Module) error {
	seen := map[string]bool{}
	for _, m := range modules {
		key := m.Name.String()
		if seen[key] {
			return fmt.Errorf("%w: %s", vmerr.ErrDuplicateModule, m.Name.String())
		}
		seen[key] = true
	}
	return nil
}

// checkDependencyClosure implements spec.md §4.1 step 1: every name
// appearing in any module's Dependencies must be either Prelude or the
// Name of one of the supplied modules, and every supplied module other
// than the entrypoint (modules[0], by the same convention Link's caller
// uses to pick what to run) must be depended on by at least one other
// module. The entrypoint is exempt from that second rule: nothing
// depends on it by construction, yet it must still link.
func checkDependencyClosure(modules []*rawmodule.Module) error {
	provided := map[string]bool{}
	for _, m := range modules {
		provided[m.Name.String()] = true
	}

	required := map[string]rawmodule.Name{}
	for _, m := range modules {
		for _, dep := range m.Dependencies {
			if dep.IsPrelude() {
				continue
			}
			required[dep.String()] = dep
		}
	}

	var missing, extra []string
	for key, name := range required {
		if !provided[key] {
			missing = append(missing, name.String())
		}
	}
	for i, m := range modules {
		if i == 0 {
			continue // the entrypoint is never depended on by anything
		}
		if _, ok := required[m.Name.String()]; !ok {
			extra = append(extra, m.Name.String())
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	switch {
	case len(missing) > 0 && len(extra) > 0:
		return fmt.Errorf("%w: missing %v, extra %v", vmerr.ErrMissingDependency, missing, extra)
	case len(missing) > 0:
		return fmt.Errorf("%w: %v", vmerr.ErrMissingDependency, missing)
	default:
		return fmt.Errorf("%w: %v", vmerr.ErrExtraModule, extra)
	}
}

// checkADTAgreement implements spec.md §4.1 step 2.
func checkADTAgreement(modules []*rawmodule.Module) error {
	byName := map[string]*rawmodule.Module{}
	for _, m := range modules {
		byName[m.Name.String()] = m
	}

	for _, m := range modules {
		for _, exp := range m.ExpectedADTs {
			provider, ok := byName[exp.Module.String()]
			if !ok {
				return fmt.Errorf("%s: %w: %s", m.Name.String(), vmerr.ErrUnresolvedModule, exp.Module.String())
			}
			actual, ok := provider.ADTByName(exp.Name)
			if !ok {
				return fmt.Errorf("%s: %w: %s::%s", m.Name.String(), vmerr.ErrUnresolvedADT, exp.Module.String(), exp.Name)
			}
			if err := variantsAgree(exp.Variants, actual.Variants); err != nil {
				return fmt.Errorf("%s expects %s::%s: %w", m.Name.String(), exp.Module.String(), exp.Name, err)
			}
		}
		// Defensive check: every provided variant's own elements must be
		// sorted, regardless of whether anyone declared an expected_adt
		// against it.
		for _, adt := range m.ADTs {
			for _, v := range adt.Variants {
				if !sort.StringsAreSorted(v.Elements) {
					return fmt.Errorf("%s::%s::%s: %w", m.Name.String(), adt.Name, v.Name, vmerr.ErrUnsortedElements)
				}
			}
		}
	}
	return nil
}

func variantsAgree(expected, actual []rawmodule.Variant) error {
	if len(expected) != len(actual) {
		return fmt.Errorf("%w: %d variants expected, %d provided", vmerr.ErrADTDisagreement, len(expected), len(actual))
	}
	actualByName := map[string]rawmodule.Variant{}
	for _, v := range actual {
		actualByName[v.Name] = v
	}
	for _, exp := range expected {
		if !sort.StringsAreSorted(exp.Elements) {
			return fmt.Errorf("%s: %w", exp.Name, vmerr.ErrUnsortedElements)
		}
		act, ok := actualByName[exp.Name]
		if !ok {
			return fmt.Errorf("%w: variant %s not provided", vmerr.ErrADTDisagreement, exp.Name)
		}
		if len(act.Elements) != len(exp.Elements) {
			return fmt.Errorf("%w: variant %s field count mismatch", vmerr.ErrADTDisagreement, exp.Name)
		}
		for i := range exp.Elements {
			if exp.Elements[i] != act.Elements[i] {
				return fmt.Errorf("%w: variant %s field %d: expected %q, got %q",
					vmerr.ErrADTDisagreement, exp.Name, i, exp.Elements[i], act.Elements[i])
			}
		}
	}
	return nil
}

// assignIndices implements spec.md §4.1 step 3. Assumes modules have
// already passed the dependency-closure and ADT-agreement checks.
func assignIndices(modules []*rawmodule.Module) *Context {
	ctx := &Context{
		moduleByName: map[string]bytecode.ModuleIndex{},
		funcByKey:    map[string]bytecode.FunctionIndex{},
		adtByKey:     map[string]bytecode.DatatypeIndex{},
		ctorByKey:    map[string]bytecode.ConstructorIndex{},
	}

	for mIdx, m := range modules {
		ctx.moduleNames = append(ctx.moduleNames, m.Name)
		ctx.moduleByName[m.Name.String()] = bytecode.ModuleIndex(mIdx)
		ctx.strings = append(ctx.strings, m.Strings)
	}

	for mIdx, m := range modules {
		mi := bytecode.ModuleIndex(mIdx)
		for _, fnName := range m.SortedFunctionNames() {
			fIdx := bytecode.FunctionIndex(len(ctx.functionName))
			ctx.functionModule = append(ctx.functionModule, mi)
			ctx.functionModuleName = append(ctx.functionModuleName, m.Name)
			ctx.functionName = append(ctx.functionName, fnName)
			ctx.funcByKey[funcKey(m.Name, fnName)] = fIdx
		}
	}

	for mIdx, m := range modules {
		mi := bytecode.ModuleIndex(mIdx)
		for _, adt := range m.ADTs {
			dIdx := bytecode.DatatypeIndex(len(ctx.datatypeName))
			ctx.datatypeModule = append(ctx.datatypeModule, mi)
			ctx.datatypeModuleName = append(ctx.datatypeModuleName, m.Name)
			ctx.datatypeName = append(ctx.datatypeName, adt.Name)
			ctx.adtByKey[adtKey(m.Name, adt.Name)] = dIdx

			for _, v := range adt.Variants {
				cIdx := bytecode.ConstructorIndex(len(ctx.constructorName))
				ctx.constructorModule = append(ctx.constructorModule, mi)
				ctx.constructorModuleName = append(ctx.constructorModuleName, m.Name)
				ctx.constructorDatatype = append(ctx.constructorDatatype, dIdx)
				ctx.constructorDatatypeName = append(ctx.constructorDatatypeName, adt.Name)
				ctx.constructorName = append(ctx.constructorName, v.Name)
				ctx.constructorFieldNames = append(ctx.constructorFieldNames, v.Elements)
				ctx.ctorByKey[ctorKey(m.Name, adt.Name, v.Name)] = cIdx
			}
		}
	}

	return ctx
}

func sanityCheck(ctx *Context, funcs [][]bytecode.Op) error {
	n := len(ctx.functionName)
	if len(funcs) != n || len(ctx.functionModule) != n || len(ctx.functionModuleName) != n {
		return fmt.Errorf("linker BUG: function table lengths disagree")
	}
	d := len(ctx.datatypeName)
	if len(ctx.datatypeModule) != d || len(ctx.datatypeModuleName) != d {
		return fmt.Errorf("linker BUG: datatype table lengths disagree")
	}
	c := len(ctx.constructorName)
	if len(ctx.constructorModule) != c || len(ctx.constructorModuleName) != c ||
		len(ctx.constructorDatatype) != c || len(ctx.constructorDatatypeName) != c ||
		len(ctx.constructorFieldNames) != c {
		return fmt.Errorf("linker BUG: constructor table lengths disagree")
	}
	return nil
}
