package classfile

import (
	"fmt"
	"strings"
)

var baseTypes = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// TypeRef describes an erased field type the way the JVM reflection API
// names it.
type TypeRef struct {
	// Binary is the Class.getName form: "int", "java.lang.String",
	// "[Ljava.lang.String;".
	Binary string
	// Simple is the unqualified form: "int", "String", "String[]".
	Simple string
	// TypeName is the source-like form: "java.lang.String[]".
	TypeName  string
	Primitive bool
	Array     bool
}

// ParseFieldDescriptor decodes a field descriptor such as "[Ljava/lang/String;".
func ParseFieldDescriptor(desc string) (TypeRef, error) {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	elem := desc[dims:]
	if elem == "" {
		return TypeRef{}, fmt.Errorf("invalid field descriptor %q", desc)
	}

	var binary, simple string
	prim := false
	switch {
	case len(elem) == 1:
		name, ok := baseTypes[elem[0]]
		if !ok || elem[0] == 'V' {
			return TypeRef{}, fmt.Errorf("invalid field descriptor %q", desc)
		}
		binary, simple, prim = name, name, true
	case elem[0] == 'L' && strings.HasSuffix(elem, ";"):
		binary = strings.ReplaceAll(elem[1:len(elem)-1], "/", ".")
		simple = simpleName(binary)
	default:
		return TypeRef{}, fmt.Errorf("invalid field descriptor %q", desc)
	}

	if dims == 0 {
		return TypeRef{Binary: binary, Simple: simple, TypeName: binary, Primitive: prim}, nil
	}
	brackets := strings.Repeat("[]", dims)
	return TypeRef{
		Binary:   strings.ReplaceAll(desc, "/", "."),
		Simple:   simple + brackets,
		TypeName: binary + brackets,
		Array:    true,
	}, nil
}

// simpleName strips the package and any enclosing class names.
func simpleName(binary string) string {
	s := binary[strings.LastIndex(binary, ".")+1:]
	if i := strings.LastIndex(s, "$"); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}

// FieldSignatureString renders a field's generic signature the way
// java.lang.reflect.Type#getTypeName does, e.g.
// "java.util.Map<java.lang.String, java.lang.String>".
func FieldSignatureString(sig string) (string, error) {
	p := &sigParser{s: sig}
	out, err := p.javaType()
	if err != nil {
		return "", err
	}
	if !p.done() {
		return "", p.errorf("trailing data")
	}
	return out, nil
}

// MethodShape is a decoded method descriptor or signature.
type MethodShape struct {
	TypeParams []string
	Params     []string
	Return     string
	Throws     []string
}

// ParseMethodSignature decodes a method Signature attribute, or a plain
// method descriptor when no generic signature exists.
func ParseMethodSignature(sig string) (MethodShape, error) {
	p := &sigParser{s: sig}
	var m MethodShape

	if p.peek() == '<' {
		params, err := p.typeParameters()
		if err != nil {
			return m, err
		}
		m.TypeParams = params
	}

	if err := p.expect('('); err != nil {
		return m, err
	}
	for p.peek() != ')' {
		if p.done() {
			return m, p.errorf("unterminated parameter list")
		}
		t, err := p.javaType()
		if err != nil {
			return m, err
		}
		m.Params = append(m.Params, t)
	}
	p.pos++

	if p.peek() == 'V' {
		p.pos++
		m.Return = "void"
	} else {
		t, err := p.javaType()
		if err != nil {
			return m, err
		}
		m.Return = t
	}

	for p.peek() == '^' {
		p.pos++
		t, err := p.javaType()
		if err != nil {
			return m, err
		}
		m.Throws = append(m.Throws, t)
	}
	if !p.done() {
		return m, p.errorf("trailing data")
	}
	return m, nil
}

type sigParser struct {
	s   string
	pos int
}

func (p *sigParser) done() bool { return p.pos >= len(p.s) }

func (p *sigParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.s[p.pos]
}

func (p *sigParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *sigParser) errorf(format string, args ...any) error {
	return fmt.Errorf("signature %q at %d: %s", p.s, p.pos, fmt.Sprintf(format, args...))
}

// javaType parses a JavaTypeSignature (base, class, type variable or array).
func (p *sigParser) javaType() (string, error) {
	c := p.peek()
	switch c {
	case 'L':
		return p.classType()
	case 'T':
		p.pos++
		end := strings.IndexByte(p.s[p.pos:], ';')
		if end < 0 {
			return "", p.errorf("unterminated type variable")
		}
		name := p.s[p.pos : p.pos+end]
		p.pos += end + 1
		return name, nil
	case '[':
		p.pos++
		elem, err := p.javaType()
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	}
	if name, ok := baseTypes[c]; ok && c != 'V' {
		p.pos++
		return name, nil
	}
	return "", p.errorf("unexpected %q", c)
}

func (p *sigParser) classType() (string, error) {
	if err := p.expect('L'); err != nil {
		return "", err
	}
	ident := p.identifier()
	if ident == "" {
		return "", p.errorf("missing class name")
	}
	out := strings.ReplaceAll(ident, "/", ".")

	for {
		if p.peek() == '<' {
			args, err := p.typeArguments()
			if err != nil {
				return "", err
			}
			out += "<" + strings.Join(args, ", ") + ">"
		}
		switch p.peek() {
		case '.':
			p.pos++
			inner := p.identifier()
			if inner == "" {
				return "", p.errorf("missing inner class name")
			}
			out += "$" + inner
		case ';':
			p.pos++
			return out, nil
		default:
			return "", p.errorf("unterminated class type")
		}
	}
}

func (p *sigParser) identifier() string {
	start := p.pos
	for !p.done() {
		switch p.s[p.pos] {
		case '<', '.', ';', ':', '>':
			return p.s[start:p.pos]
		}
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *sigParser) typeArguments() ([]string, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var args []string
	for p.peek() != '>' {
		if p.done() {
			return nil, p.errorf("unterminated type arguments")
		}
		switch p.peek() {
		case '*':
			p.pos++
			args = append(args, "?")
		case '+':
			p.pos++
			t, err := p.javaType()
			if err != nil {
				return nil, err
			}
			if t == "java.lang.Object" {
				args = append(args, "?")
			} else {
				args = append(args, "? extends "+t)
			}
		case '-':
			p.pos++
			t, err := p.javaType()
			if err != nil {
				return nil, err
			}
			args = append(args, "? super "+t)
		default:
			t, err := p.javaType()
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
	}
	p.pos++
	return args, nil
}

// typeParameters renders each parameter as Executable#toGenericString
// does: the bare name when bounded by Object only, otherwise
// "T extends A & B".
func (p *sigParser) typeParameters() ([]string, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var out []string
	for p.peek() != '>' {
		if p.done() {
			return nil, p.errorf("unterminated type parameters")
		}
		name := p.identifier()
		if name == "" {
			return nil, p.errorf("missing type parameter name")
		}
		if p.peek() != ':' {
			return nil, p.errorf("type parameter %s has no bound", name)
		}
		var bounds []string
		for p.peek() == ':' {
			p.pos++
			if p.peek() == ':' || p.peek() == '>' {
				continue // empty class bound
			}
			b, err := p.javaType()
			if err != nil {
				return nil, err
			}
			bounds = append(bounds, b)
		}
		if len(bounds) == 0 || (len(bounds) == 1 && bounds[0] == "java.lang.Object") {
			out = append(out, name)
		} else {
			out = append(out, name+" extends "+strings.Join(bounds, " & "))
		}
	}
	p.pos++
	return out, nil
}
