package source

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"graffiti/internal/graph"
)

var typeDeclarations = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

type javaFile struct {
	path     string
	src      []byte
	pkg      string
	imports  map[string]string // simple name -> binary name
	onDemand []string
	nested   map[string]string // simple name -> binary name, types declared in this file
	decls    []*decl
}

type decl struct {
	fqn   string
	node  *sitter.Node
	outer *decl
}

func newJavaFile(path string, src []byte, root *sitter.Node) *javaFile {
	f := &javaFile{
		path:    path,
		src:     src,
		imports: make(map[string]string),
		nested:  make(map[string]string),
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c := root.NamedChild(i)
		switch c.Type() {
		case "package_declaration":
			text := strings.TrimSpace(c.Content(src))
			text = strings.TrimPrefix(text, "package")
			f.pkg = compact(strings.TrimSuffix(strings.TrimSpace(text), ";"))
		case "import_declaration":
			f.addImport(c.Content(src))
		}
	}
	return f
}

func (f *javaFile) addImport(text string) {
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "import"))
	if strings.HasPrefix(text, "static ") {
		return
	}
	text = compact(strings.TrimSuffix(text, ";"))
	if pkg, ok := strings.CutSuffix(text, ".*"); ok {
		f.onDemand = append(f.onDemand, pkg)
		return
	}
	f.imports[text[strings.LastIndex(text, ".")+1:]] = qualifiedToBinary(text)
}

// collect records every type declaration under n. Bodies of methods are
// not entered, so local and anonymous classes are not collected.
func (f *javaFile) collect(n *sitter.Node, outer *decl) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if typeDeclarations[c.Type()] {
			nameNode := c.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nameNode.Content(f.src)
			var fqn string
			switch {
			case outer != nil:
				fqn = outer.fqn + "$" + name
			case f.pkg != "":
				fqn = f.pkg + "." + name
			default:
				fqn = name
			}
			d := &decl{fqn: fqn, node: c, outer: outer}
			f.decls = append(f.decls, d)
			if _, ok := f.nested[name]; !ok {
				f.nested[name] = fqn
			}
			if body := c.ChildByFieldName("body"); body != nil {
				f.collect(body, d)
			}
			continue
		}
		switch c.Type() {
		case "class_body", "interface_body", "enum_body", "enum_body_declarations", "annotation_type_body":
			f.collect(c, outer)
		}
	}
}

// describe builds the descriptor for the scope's declaration.
func (s *scope) describe() *graph.TypeDescriptor {
	d := s.decl
	desc := &graph.TypeDescriptor{
		FullyQualifiedName: d.fqn,
		Category:           s.category(),
	}
	s.typeParams = s.declareTypeParams(d.node.ChildByFieldName("type_parameters"), s.outerTypeParams())

	if d.node.Type() == "record_declaration" {
		if params := d.node.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				c := params.NamedChild(i)
				if c.Type() != "formal_parameter" {
					continue
				}
				if fd, ok := s.field(c.ChildByFieldName("type"), c); ok {
					desc.Fields = append(desc.Fields, fd)
				}
			}
		}
	}

	if body := d.node.ChildByFieldName("body"); body != nil {
		s.members(desc, body)
	}
	return desc
}

func (s *scope) category() graph.Category {
	switch s.decl.node.Type() {
	case "interface_declaration", "annotation_type_declaration":
		return graph.CategoryInterface
	case "class_declaration":
		if hasModifier(modifiersOf(s.decl.node, s.file.src), "abstract") {
			return graph.CategoryAbstract
		}
	}
	return graph.CategoryClass
}

// outerTypeParams returns the type parameters visible from enclosing
// declarations.
func (s *scope) outerTypeParams() map[string]typeParam {
	out := make(map[string]typeParam)
	var chain []*decl
	for o := s.decl.outer; o != nil; o = o.outer {
		chain = append(chain, o)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		inner := &scope{file: s.file, decl: chain[i], declared: s.declared, typeParams: out}
		out = inner.declareTypeParams(chain[i].node.ChildByFieldName("type_parameters"), out)
	}
	return out
}

func (s *scope) members(desc *graph.TypeDescriptor, body *sitter.Node) {
	inInterface := s.decl.node.Type() == "interface_declaration" || s.decl.node.Type() == "annotation_type_declaration"
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "field_declaration", "constant_declaration":
			typeNode := c.ChildByFieldName("type")
			for j := 0; j < int(c.NamedChildCount()); j++ {
				v := c.NamedChild(j)
				if v.Type() != "variable_declarator" {
					continue
				}
				if fd, ok := s.field(typeNode, v); ok {
					desc.Fields = append(desc.Fields, fd)
				}
			}
		case "enum_constant":
			if name := c.ChildByFieldName("name"); name != nil {
				desc.Fields = append(desc.Fields, graph.FieldDescriptor{
					Name:             name.Content(s.file.src),
					DeclaredTypeName: s.decl.fqn,
					SimpleTypeName:   simpleName(s.decl.fqn),
				})
			}
		case "enum_body_declarations":
			s.members(desc, c)
		case "method_declaration", "annotation_type_element_declaration":
			desc.Methods = append(desc.Methods, s.method(c, inInterface))
		}
	}
}

// field describes one declarator; the declarator may carry extra array
// dimensions ("int a[]").
func (s *scope) field(typeNode, declarator *sitter.Node) (graph.FieldDescriptor, bool) {
	name := declarator.ChildByFieldName("name")
	if typeNode == nil || name == nil {
		return graph.FieldDescriptor{}, false
	}
	t := s.typeOf(typeNode, dimensions(declarator.ChildByFieldName("dimensions"), s.file.src))
	fd := graph.FieldDescriptor{
		Name:             name.Content(s.file.src),
		DeclaredTypeName: t.binary,
		SimpleTypeName:   t.simple,
		IsPrimitive:      t.primitive,
		IsArray:          t.array,
	}
	if t.generic {
		fd.GenericSignature = t.name
	}
	return fd, true
}

var modifierOrder = []string{
	"public", "protected", "private",
	"abstract", "static", "final", "synchronized", "native", "strictfp",
}

func (s *scope) method(n *sitter.Node, inInterface bool) graph.Method {
	src := s.file.src
	mods := modifiersOf(n, src)
	body := n.ChildByFieldName("body")

	isDefault := hasModifier(mods, "default")
	if inInterface && !hasModifier(mods, "private") {
		mods = append(mods, "public")
		if body == nil && !hasModifier(mods, "static") {
			mods = append(mods, "abstract")
		}
	}

	var ordered []string
	for i, m := range modifierOrder {
		if i == 3 && isDefault {
			ordered = append(ordered, "default")
		}
		if hasModifier(mods, m) {
			ordered = append(ordered, m)
		}
	}
	modText := strings.Join(ordered, " ")

	ms := &scope{file: s.file, decl: s.decl, declared: s.declared}
	ms.typeParams = ms.declareTypeParams(n.ChildByFieldName("type_parameters"), s.typeParams)

	var sb strings.Builder
	if modText != "" {
		sb.WriteString(modText + " ")
	}
	if tp := ms.renderTypeParams(n.ChildByFieldName("type_parameters")); tp != "" {
		sb.WriteString("<" + tp + "> ")
	}
	ret := "void"
	if t := n.ChildByFieldName("type"); t != nil {
		ret = ms.typeOf(t, 0).name
	}
	sb.WriteString(ret + " " + s.decl.fqn + ".")
	if name := n.ChildByFieldName("name"); name != nil {
		sb.WriteString(name.Content(src))
	}
	sb.WriteString("(" + strings.Join(ms.parameters(n.ChildByFieldName("parameters")), ",") + ")")

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "throws" {
			continue
		}
		var thrown []string
		for j := 0; j < int(c.NamedChildCount()); j++ {
			thrown = append(thrown, ms.typeOf(c.NamedChild(j), 0).name)
		}
		if len(thrown) > 0 {
			sb.WriteString(" throws " + strings.Join(thrown, ","))
		}
	}

	return graph.Method{
		Signature:  sb.String(),
		Visibility: graph.VisibilityFromModifiers(modText),
	}
}

func (s *scope) parameters(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "formal_parameter":
			t := c.ChildByFieldName("type")
			if t == nil {
				continue
			}
			out = append(out, s.typeOf(t, dimensions(c.ChildByFieldName("dimensions"), s.file.src)).name)
		case "spread_parameter":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				t := c.NamedChild(j)
				if t.Type() == "modifiers" || t.Type() == "variable_declarator" {
					continue
				}
				out = append(out, s.typeOf(t, 0).name+"...")
				break
			}
		}
	}
	return out
}

func modifiersOf(n *sitter.Node, src []byte) []string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "modifiers" {
			continue
		}
		var out []string
		for j := 0; j < int(c.ChildCount()); j++ {
			k := c.Child(j)
			if !k.IsNamed() {
				out = append(out, k.Content(src))
			}
		}
		return out
	}
	return nil
}

func hasModifier(mods []string, m string) bool {
	for _, x := range mods {
		if x == m {
			return true
		}
	}
	return false
}

func dimensions(n *sitter.Node, src []byte) int {
	if n == nil {
		return 0
	}
	return strings.Count(n.Content(src), "[")
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
