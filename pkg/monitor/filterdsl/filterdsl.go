// Package filterdsl parses device filter expressions such as
//
//	type(joystick) and vendor(0x054c)
//	name("Thrustmaster") or not type(mouse)
//
// into predicates over device descriptors.
package filterdsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ttsuki/librawinput/pkg/rawinput"
)

var (
	ruleWhitespace = lexer.SimpleRule{Name: "Whitespace", Pattern: `[ \t]+`}
	ruleHex        = lexer.SimpleRule{Name: "Hex", Pattern: `0x[0-9a-fA-F]+`}
	ruleNumber     = lexer.SimpleRule{Name: "Number", Pattern: `\d+`}
	ruleString     = lexer.SimpleRule{Name: "String", Pattern: `"(\\"|[^"])*"`}
	ruleIdent      = lexer.SimpleRule{Name: "Ident", Pattern: `[a-z][\w]*`}
	rulePunct      = lexer.SimpleRule{Name: "Punct", Pattern: `[(),]`}
)

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	ruleWhitespace,
	ruleHex,
	ruleNumber,
	ruleString,
	ruleIdent,
	rulePunct,
})

var filterParser = participle.MustBuild[Expr](
	participle.Lexer(filterLexer),
	participle.UseLookahead(2),
	participle.Elide(ruleWhitespace.Name),
	participle.Unquote(ruleString.Name),
)

type Expr struct {
	Or []*AndExpr `parser:"@@ ('or' @@)*"`
}

type AndExpr struct {
	Terms []*Term `parser:"@@ ('and' @@)*"`
}

type Term struct {
	Not  *Term      `parser:"'not' @@"`
	Sub  *Expr      `parser:"| '(' @@ ')'"`
	Pred *Predicate `parser:"| @@"`
}

type Predicate struct {
	Name string `parser:"@Ident"`
	Arg  Arg    `parser:"'(' @@ ')'"`
}

type Arg struct {
	Hex    *string `parser:"@Hex"`
	Number *uint64 `parser:"| @Number"`
	Str    *string `parser:"| @String"`
	Ident  *string `parser:"| @Ident"`
}

// Filter is a compiled device predicate.
type Filter func(d rawinput.DeviceDescriptor) bool

// Compile parses and compiles a filter expression. An empty expression
// matches every device.
func Compile(src string) (Filter, error) {
	if strings.TrimSpace(src) == "" {
		return func(rawinput.DeviceDescriptor) bool { return true }, nil
	}
	expr, err := filterParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter: %w", err)
	}
	return compileExpr(expr)
}

func compileExpr(e *Expr) (Filter, error) {
	var alts []Filter
	for _, and := range e.Or {
		f, err := compileAnd(and)
		if err != nil {
			return nil, err
		}
		alts = append(alts, f)
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return func(d rawinput.DeviceDescriptor) bool {
		for _, f := range alts {
			if f(d) {
				return true
			}
		}
		return false
	}, nil
}

func compileAnd(e *AndExpr) (Filter, error) {
	var terms []Filter
	for _, t := range e.Terms {
		f, err := compileTerm(t)
		if err != nil {
			return nil, err
		}
		terms = append(terms, f)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return func(d rawinput.DeviceDescriptor) bool {
		for _, f := range terms {
			if !f(d) {
				return false
			}
		}
		return true
	}, nil
}

func compileTerm(t *Term) (Filter, error) {
	switch {
	case t.Not != nil:
		inner, err := compileTerm(t.Not)
		if err != nil {
			return nil, err
		}
		return func(d rawinput.DeviceDescriptor) bool { return !inner(d) }, nil
	case t.Sub != nil:
		return compileExpr(t.Sub)
	default:
		return compilePredicate(t.Pred)
	}
}

var deviceTypes = map[string]rawinput.DeviceType{
	"mouse":    rawinput.DeviceMouse,
	"keyboard": rawinput.DeviceKeyboard,
	"joystick": rawinput.DeviceJoystick,
	"gamepad":  rawinput.DeviceGamePad,
	"any":      rawinput.DeviceAll,
}

func compilePredicate(p *Predicate) (Filter, error) {
	switch p.Name {
	case "type":
		if p.Arg.Ident == nil {
			return nil, fmt.Errorf("type() expects a device type name")
		}
		mask, ok := deviceTypes[*p.Arg.Ident]
		if !ok {
			return nil, fmt.Errorf("unknown device type %q", *p.Arg.Ident)
		}
		return func(d rawinput.DeviceDescriptor) bool { return d.Type.Has(mask) }, nil
	case "vendor":
		id, err := numericArg(p)
		if err != nil {
			return nil, err
		}
		return func(d rawinput.DeviceDescriptor) bool { return d.VendorID == id }, nil
	case "product":
		id, err := numericArg(p)
		if err != nil {
			return nil, err
		}
		return func(d rawinput.DeviceDescriptor) bool { return d.ProductID == id }, nil
	case "serial":
		if p.Arg.Str == nil {
			return nil, fmt.Errorf("serial() expects a quoted string")
		}
		want := *p.Arg.Str
		return func(d rawinput.DeviceDescriptor) bool { return d.Serial == want }, nil
	case "path":
		if p.Arg.Str == nil {
			return nil, fmt.Errorf("path() expects a quoted string")
		}
		want := *p.Arg.Str
		return func(d rawinput.DeviceDescriptor) bool { return d.Path == want }, nil
	case "name":
		if p.Arg.Str == nil {
			return nil, fmt.Errorf("name() expects a quoted string")
		}
		want := strings.ToLower(*p.Arg.Str)
		return func(d rawinput.DeviceDescriptor) bool {
			return strings.Contains(strings.ToLower(d.Manufacturer), want) ||
				strings.Contains(strings.ToLower(d.Product), want)
		}, nil
	default:
		return nil, fmt.Errorf("unknown predicate %q", p.Name)
	}
}

func numericArg(p *Predicate) (uint16, error) {
	switch {
	case p.Arg.Hex != nil:
		v, err := strconv.ParseUint(strings.TrimPrefix(*p.Arg.Hex, "0x"), 16, 16)
		if err != nil {
			return 0, fmt.Errorf("%s(): %w", p.Name, err)
		}
		return uint16(v), nil
	case p.Arg.Number != nil:
		if *p.Arg.Number > 0xffff {
			return 0, fmt.Errorf("%s(): value out of range", p.Name)
		}
		return uint16(*p.Arg.Number), nil
	default:
		return 0, fmt.Errorf("%s() expects a numeric ID", p.Name)
	}
}
