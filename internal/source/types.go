package source

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// javaLang lists the java.lang types resolvable without an import.
var javaLang = map[string]bool{
	"Appendable": true, "AutoCloseable": true, "Boolean": true, "Byte": true,
	"CharSequence": true, "Character": true, "Class": true, "ClassLoader": true,
	"Cloneable": true, "Comparable": true, "Deprecated": true, "Double": true,
	"Enum": true, "Error": true, "Exception": true, "Float": true,
	"FunctionalInterface": true, "IllegalArgumentException": true,
	"IllegalStateException": true, "IndexOutOfBoundsException": true,
	"Integer": true, "InterruptedException": true, "Iterable": true, "Long": true,
	"Math": true, "NullPointerException": true, "Number": true, "Object": true,
	"Override": true, "Process": true, "Readable": true, "Record": true,
	"Runnable": true, "RuntimeException": true, "SafeVarargs": true, "Short": true,
	"StackTraceElement": true, "String": true, "StringBuffer": true,
	"StringBuilder": true, "SuppressWarnings": true, "System": true, "Thread": true,
	"ThreadLocal": true, "Throwable": true, "UnsupportedOperationException": true,
	"Void": true,
}

var primitiveCodes = map[string]string{
	"byte":    "B",
	"char":    "C",
	"double":  "D",
	"float":   "F",
	"int":     "I",
	"long":    "J",
	"short":   "S",
	"boolean": "Z",
}

// typeInfo names a source type the way reflection would name its
// compiled form.
type typeInfo struct {
	binary    string // erased binary name: "java.util.List", "[I"
	simple    string // "List", "int[]"
	name      string // generic-aware: "java.util.List<java.lang.String>"
	primitive bool
	array     bool
	generic   bool // has type arguments or is a type variable
}

type typeParam struct {
	erasure  string
	rendered string
}

type scope struct {
	file       *javaFile
	decl       *decl
	declared   map[string]bool
	typeParams map[string]typeParam
}

// declareTypeParams returns parent extended with the parameters declared by
// n. Bounds may refer to the parameters being declared.
func (s *scope) declareTypeParams(n *sitter.Node, parent map[string]typeParam) map[string]typeParam {
	out := make(map[string]typeParam, len(parent))
	for k, v := range parent {
		out[k] = v
	}
	if n == nil {
		return out
	}

	type pending struct {
		name   string
		bounds []*sitter.Node
	}
	var params []pending
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_parameter" {
			continue
		}
		var p pending
		for j := 0; j < int(c.NamedChildCount()); j++ {
			k := c.NamedChild(j)
			switch k.Type() {
			case "type_identifier", "identifier":
				if p.name == "" {
					p.name = k.Content(s.file.src)
				}
			case "type_bound":
				for b := 0; b < int(k.NamedChildCount()); b++ {
					p.bounds = append(p.bounds, k.NamedChild(b))
				}
			}
		}
		if p.name == "" {
			continue
		}
		out[p.name] = typeParam{erasure: "java.lang.Object", rendered: p.name}
		params = append(params, p)
	}

	inner := &scope{file: s.file, decl: s.decl, declared: s.declared, typeParams: out}
	for _, p := range params {
		if len(p.bounds) == 0 {
			continue
		}
		var names []string
		for _, b := range p.bounds {
			names = append(names, inner.typeOf(b, 0).name)
		}
		tp := typeParam{erasure: inner.typeOf(p.bounds[0], 0).binary, rendered: p.name}
		if !(len(names) == 1 && names[0] == "java.lang.Object") {
			tp.rendered = p.name + " extends " + strings.Join(names, " & ")
		}
		out[p.name] = tp
	}
	return out
}

func (s *scope) renderTypeParams(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_parameter" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			k := c.NamedChild(j)
			if k.Type() == "type_identifier" || k.Type() == "identifier" {
				out = append(out, s.typeParams[k.Content(s.file.src)].rendered)
				break
			}
		}
	}
	return strings.Join(out, ",")
}

// typeOf describes a type node; extraDims adds array dimensions declared
// on the variable rather than the type.
func (s *scope) typeOf(n *sitter.Node, extraDims int) typeInfo {
	var t typeInfo
	src := s.file.src

	switch n.Type() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		name := n.Content(src)
		t = typeInfo{binary: name, simple: name, name: name, primitive: name != "void"}
	case "type_identifier":
		name := n.Content(src)
		if tp, ok := s.typeParams[name]; ok {
			t = typeInfo{binary: tp.erasure, simple: simpleName(tp.erasure), name: name, generic: true}
		} else {
			fqn := s.resolveClass(name)
			t = typeInfo{binary: fqn, simple: simpleName(fqn), name: fqn}
		}
	case "scoped_type_identifier":
		fqn := s.resolveClass(compact(n.Content(src)))
		t = typeInfo{binary: fqn, simple: simpleName(fqn), name: fqn}
	case "generic_type":
		var raw typeInfo
		var args []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "type_arguments" {
				args = s.typeArguments(c)
				continue
			}
			raw = s.typeOf(c, 0)
		}
		t = typeInfo{binary: raw.binary, simple: raw.simple, name: raw.name, generic: true}
		if len(args) > 0 {
			t.name += "<" + strings.Join(args, ", ") + ">"
		}
	case "array_type":
		elem := n.ChildByFieldName("element")
		if elem == nil {
			return s.resolvedText(n, extraDims)
		}
		return arrayOf(s.typeOf(elem, 0), dimensions(n.ChildByFieldName("dimensions"), src)+extraDims)
	case "annotated_type":
		// Annotations precede the annotated type.
		if c := n.NamedChildCount(); c > 0 {
			return s.typeOf(n.NamedChild(int(c)-1), extraDims)
		}
		return s.resolvedText(n, extraDims)
	default:
		return s.resolvedText(n, extraDims)
	}

	if extraDims > 0 {
		return arrayOf(t, extraDims)
	}
	return t
}

func (s *scope) resolvedText(n *sitter.Node, extraDims int) typeInfo {
	fqn := s.resolveClass(compact(n.Content(s.file.src)))
	return arrayOf(typeInfo{binary: fqn, simple: simpleName(fqn), name: fqn}, extraDims)
}

func (s *scope) typeArguments(n *sitter.Node) []string {
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "wildcard" {
			out = append(out, s.typeOf(c, 0).name)
			continue
		}

		var kind string
		var bound *sitter.Node
		for j := 0; j < int(c.ChildCount()); j++ {
			k := c.Child(j)
			switch {
			case k.Type() == "extends" || k.Type() == "super":
				kind = k.Type()
			case k.IsNamed() && !strings.HasSuffix(k.Type(), "annotation"):
				bound = k
			}
		}
		if bound == nil {
			out = append(out, "?")
			continue
		}
		b := s.typeOf(bound, 0).name
		if kind == "extends" && b == "java.lang.Object" {
			out = append(out, "?")
			continue
		}
		out = append(out, "? "+kind+" "+b)
	}
	return out
}

func arrayOf(elem typeInfo, dims int) typeInfo {
	if dims <= 0 {
		return elem
	}
	prefix := strings.Repeat("[", dims)
	brackets := strings.Repeat("[]", dims)

	var binary string
	switch {
	case elem.array:
		binary = prefix + elem.binary
	case elem.primitive:
		binary = prefix + primitiveCodes[elem.binary]
	default:
		binary = prefix + "L" + elem.binary + ";"
	}
	return typeInfo{
		binary:  binary,
		simple:  elem.simple + brackets,
		name:    elem.name + brackets,
		array:   true,
		generic: elem.generic,
	}
}

// resolveClass maps a simple or dotted name in source to a binary name.
// Lookup order: types declared in this file, single-type imports, the
// file's package, java.lang, the first on-demand import, then the file's
// package again as a guess.
func (s *scope) resolveClass(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		first := name[:i]
		if !startsUpper(first) {
			return qualifiedToBinary(name)
		}
		return s.resolveClass(first) + "$" + strings.ReplaceAll(name[i+1:], ".", "$")
	}

	f := s.file
	if fqn, ok := f.nested[name]; ok {
		return fqn
	}
	if fqn, ok := f.imports[name]; ok {
		return fqn
	}
	local := name
	if f.pkg != "" {
		local = f.pkg + "." + name
	}
	if s.declared[local] {
		return local
	}
	if javaLang[name] {
		return "java.lang." + name
	}
	if len(f.onDemand) > 0 {
		return f.onDemand[0] + "." + name
	}
	return local
}

// qualifiedToBinary turns "com.x.Outer.Inner" into "com.x.Outer$Inner":
// segments after the first capitalised one are nested types.
func qualifiedToBinary(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if startsUpper(p) {
			return strings.Join(parts[:i+1], ".") + strings.Join(append([]string{""}, parts[i+1:]...), "$")
		}
	}
	return name
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func simpleName(binary string) string {
	s := binary[strings.LastIndex(binary, ".")+1:]
	if i := strings.LastIndex(s, "$"); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}
