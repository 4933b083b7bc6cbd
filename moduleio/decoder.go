package moduleio

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adtvm/adtvm/rawmodule"
)

// Decode reads one module from r in the flat key/value text format:
//
//	module Main
//	depends B
//	string "hello"
//	adt Pair
//	  variant Pair fst snd
//	end
//	expect B Counter
//	  variant Zero
//	  variant Succ n
//	end
//	fn MAIN
//	  PushString 0
//	  LoadName Prelude print
//	  Call 1
//	end
//
// "module" must be the first directive. "depends" and "string" lines may
// repeat, in the order they should be recorded. "adt", "expect" and "fn"
// each open a block terminated by a line containing only "end".
func Decode(r io.Reader) (*rawmodule.Module, error) {
	sc, err := newScanner(r)
	if err != nil {
		return nil, err
	}

	first, ok := sc.next()
	if !ok || first.tokens[0].text != "module" {
		return nil, fmt.Errorf("moduleio: expected leading 'module' directive")
	}
	if len(first.tokens) != 2 {
		return nil, fmt.Errorf("moduleio:%d: 'module' takes exactly one name", first.line)
	}

	m := &rawmodule.Module{
		Name:      parseModuleName(first.tokens[1].text),
		Functions: map[string][]rawmodule.Instruction{},
	}

	for {
		l, ok := sc.next()
		if !ok {
			break
		}
		head := l.tokens[0].text
		switch head {
		case "depends":
			if len(l.tokens) != 2 {
				return nil, fmt.Errorf("moduleio:%d: 'depends' takes exactly one module name", l.line)
			}
			m.Dependencies = append(m.Dependencies, parseModuleName(l.tokens[1].text))

		case "string":
			if len(l.tokens) != 2 {
				return nil, fmt.Errorf("moduleio:%d: 'string' takes exactly one literal", l.line)
			}
			m.Strings = append(m.Strings, l.tokens[1].text)

		case "adt":
			adt, err := parseADT(sc, l)
			if err != nil {
				return nil, err
			}
			m.ADTs = append(m.ADTs, adt)

		case "expect":
			exp, err := parseExpectedADT(sc, l)
			if err != nil {
				return nil, err
			}
			m.ExpectedADTs = append(m.ExpectedADTs, exp)

		case "fn":
			if len(l.tokens) != 2 {
				return nil, fmt.Errorf("moduleio:%d: 'fn' takes exactly one function name", l.line)
			}
			name := l.tokens[1].text
			body, err := parseFunctionBody(sc)
			if err != nil {
				return nil, fmt.Errorf("moduleio: function %s: %w", name, err)
			}
			if _, dup := m.Functions[name]; dup {
				return nil, fmt.Errorf("moduleio:%d: duplicate function %s", l.line, name)
			}
			m.Functions[name] = body

		default:
			return nil, fmt.Errorf("moduleio:%d: unexpected directive %q", l.line, head)
		}
	}

	return m, nil
}

func parseModuleName(s string) rawmodule.Name {
	return strings.Split(s, ".")
}

func parseADT(sc *scanner, head tokenLine) (rawmodule.ADT, error) {
	if len(head.tokens) != 2 {
		return rawmodule.ADT{}, fmt.Errorf("moduleio:%d: 'adt' takes exactly one name", head.line)
	}
	adt := rawmodule.ADT{Name: head.tokens[1].text}
	for {
		l, ok := sc.next()
		if !ok {
			return rawmodule.ADT{}, fmt.Errorf("moduleio: unterminated adt %s", adt.Name)
		}
		if l.tokens[0].text == "end" {
			return adt, nil
		}
		if l.tokens[0].text != "variant" || len(l.tokens) < 2 {
			return rawmodule.ADT{}, fmt.Errorf("moduleio:%d: expected 'variant <name> [field...]'", l.line)
		}
		v := rawmodule.Variant{Name: l.tokens[1].text}
		for _, t := range l.tokens[2:] {
			v.Elements = append(v.Elements, t.text)
		}
		adt.Variants = append(adt.Variants, v)
	}
}

func parseExpectedADT(sc *scanner, head tokenLine) (rawmodule.ExpectedADT, error) {
	if len(head.tokens) != 3 {
		return rawmodule.ExpectedADT{}, fmt.Errorf("moduleio:%d: 'expect' takes a module name and a datatype name", head.line)
	}
	exp := rawmodule.ExpectedADT{
		Module: parseModuleName(head.tokens[1].text),
		Name:   head.tokens[2].text,
	}
	for {
		l, ok := sc.next()
		if !ok {
			return rawmodule.ExpectedADT{}, fmt.Errorf("moduleio: unterminated expect %s", exp.Name)
		}
		if l.tokens[0].text == "end" {
			return exp, nil
		}
		if l.tokens[0].text != "variant" || len(l.tokens) < 2 {
			return rawmodule.ExpectedADT{}, fmt.Errorf("moduleio:%d: expected 'variant <name> [field...]'", l.line)
		}
		v := rawmodule.Variant{Name: l.tokens[1].text}
		for _, t := range l.tokens[2:] {
			v.Elements = append(v.Elements, t.text)
		}
		exp.Variants = append(exp.Variants, v)
	}
}

func parseFunctionBody(sc *scanner) ([]rawmodule.Instruction, error) {
	var body []rawmodule.Instruction
	for {
		l, ok := sc.next()
		if !ok {
			return nil, fmt.Errorf("unterminated function body")
		}
		if l.tokens[0].text == "end" {
			return body, nil
		}
		instr, err := parseInstruction(l)
		if err != nil {
			return nil, err
		}
		body = append(body, instr)
	}
}

func parseInstruction(l tokenLine) (rawmodule.Instruction, error) {
	args := l.tokens[1:]
	opcode := l.tokens[0].text

	intArg := func(i int) (int, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("moduleio:%d: %s: missing argument %d", l.line, opcode, i)
		}
		n, err := strconv.Atoi(args[i].text)
		if err != nil {
			return 0, fmt.Errorf("moduleio:%d: %s: argument %d is not an integer: %w", l.line, opcode, i, err)
		}
		return n, nil
	}
	strArg := func(i int) (string, error) {
		if i >= len(args) {
			return "", fmt.Errorf("moduleio:%d: %s: missing argument %d", l.line, opcode, i)
		}
		return args[i].text, nil
	}

	switch opcode {
	case "PushInt":
		n, err := intArgInt64(args, l, opcode, 0)
		if err != nil {
			return nil, err
		}
		return rawmodule.PushInt{N: n}, nil
	case "PushString":
		n, err := intArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.PushString{Index: n}, nil
	case "LoadLocal":
		n, err := intArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.LoadLocal{Index: n}, nil
	case "StoreLocal":
		n, err := intArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.StoreLocal{Index: n}, nil
	case "LoadReg":
		n, err := intArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.LoadReg{Index: n}, nil
	case "StoreReg":
		n, err := intArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.StoreReg{Index: n}, nil
	case "Jump":
		n, err := intArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.Jump{Target: n}, nil
	case "Unless":
		n, err := intArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.Unless{Target: n}, nil
	case "Call":
		n, err := intArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.Call{Argc: n}, nil
	case "LoadName":
		mod, err := strArg(0)
		if err != nil {
			return nil, err
		}
		fn, err := strArg(1)
		if err != nil {
			return nil, err
		}
		return rawmodule.LoadName{Module: parseModuleName(mod), Func: fn}, nil
	case "LoadGlobal":
		fn, err := strArg(0)
		if err != nil {
			return nil, err
		}
		return rawmodule.LoadGlobal{Func: fn}, nil
	case "Instantiate":
		mod, dt, ctor, err := threeArgs(args, l, opcode)
		if err != nil {
			return nil, err
		}
		return rawmodule.Instantiate{Module: parseModuleName(mod), Datatype: dt, Ctor: ctor}, nil
	case "IsVariant":
		mod, dt, ctor, err := threeArgs(args, l, opcode)
		if err != nil {
			return nil, err
		}
		return rawmodule.IsVariant{Module: parseModuleName(mod), Datatype: dt, Ctor: ctor}, nil
	case "Field":
		if len(args) != 4 {
			return nil, fmt.Errorf("moduleio:%d: Field takes module, datatype, constructor, field", l.line)
		}
		return rawmodule.Field{
			Module:   parseModuleName(args[0].text),
			Datatype: args[1].text,
			Ctor:     args[2].text,
			Field:    args[3].text,
		}, nil
	default:
		return nil, fmt.Errorf("moduleio:%d: unknown instruction %q", l.line, opcode)
	}
}

func intArgInt64(args []token, l tokenLine, opcode string, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("moduleio:%d: %s: missing argument %d", l.line, opcode, i)
	}
	n, err := strconv.ParseInt(args[i].text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("moduleio:%d: %s: argument %d is not an integer: %w", l.line, opcode, i, err)
	}
	return n, nil
}

func threeArgs(args []token, l tokenLine, opcode string) (a, b, c string, err error) {
	if len(args) != 3 {
		return "", "", "", fmt.Errorf("moduleio:%d: %s takes module, datatype, constructor", l.line, opcode)
	}
	return args[0].text, args[1].text, args[2].text, nil
}
