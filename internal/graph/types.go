package graph

import "strings"

//go:generate go tool stringer -type=Kind -output=kind_string.go

// Kind tags what a TypeNode stands for. Exactly one kind per node.
type Kind int

const (
	_ Kind = iota // zero value is not a valid kind

	KindResolved   // discovered inside the archive
	KindPrimitive  // int, boolean, ...
	KindArray      // array type not present in the registry
	KindGeneric    // parameterized or type-variable reference
	KindUnresolved // declared outside the archive
)

// IsPlaceholder reports whether nodes of this kind route to the 404 page.
func (k Kind) IsPlaceholder() bool {
	switch k {
	case KindPrimitive, KindArray, KindGeneric, KindUnresolved:
		return true
	default:
		return false
	}
}

// NotFoundPage is the page every placeholder node links to.
const NotFoundPage = "404"

// TypeNode represents one structural type.
type TypeNode struct {
	Name               string
	FullyQualifiedName string
	Attributes         map[string]*TypeNode
	Methods            []Method

	kind Kind
}

// Kind returns the node's kind. It is fixed at construction.
func (n *TypeNode) Kind() Kind {
	return n.kind
}

// PageName is the page (without extension) a link to this node targets.
func (n *TypeNode) PageName() string {
	if n.kind.IsPlaceholder() {
		return NotFoundPage
	}
	return n.FullyQualifiedName
}

// SortedAttributeNames returns the attribute keys in lexical order.
func (n *TypeNode) SortedAttributeNames() []string {
	return sortedKeys(n.Attributes)
}

// Package returns the dotted package of a Resolved node, or "" for the
// default package.
func (n *TypeNode) Package() string {
	i := strings.LastIndex(n.FullyQualifiedName, ".")
	if i < 0 {
		return ""
	}
	return n.FullyQualifiedName[:i]
}

func newPlaceholder(kind Kind, name, fqn string) *TypeNode {
	return &TypeNode{Name: name, FullyQualifiedName: fqn, kind: kind}
}

// Visibility classifies a method for display.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityAbstract Visibility = "abstract"
	VisibilityOther    Visibility = "other"
)

// VisibilityFromModifiers picks the visibility from a space separated
// modifier string. public wins over private, private over abstract.
func VisibilityFromModifiers(modifiers string) Visibility {
	switch {
	case strings.Contains(modifiers, "public"):
		return VisibilityPublic
	case strings.Contains(modifiers, "private"):
		return VisibilityPrivate
	case strings.Contains(modifiers, "abstract"):
		return VisibilityAbstract
	default:
		return VisibilityOther
	}
}

// Method is a declared method of a Resolved type.
type Method struct {
	Signature  string     `json:"signature"`
	Visibility Visibility `json:"visibility"`
}

// Category is the declaration form of an archive type.
type Category string

const (
	CategoryClass     Category = "class"
	CategoryInterface Category = "interface"
	CategoryAbstract  Category = "abstract"
)

// FieldDescriptor is the static shape of one declared field.
type FieldDescriptor struct {
	Name string
	// DeclaredTypeName is the binary name of the field's erased type, e.g.
	// "int", "java.lang.String" or "[Ljava.lang.String;".
	DeclaredTypeName string
	// SimpleTypeName is the unqualified form, e.g. "String[]".
	SimpleTypeName string
	IsPrimitive    bool
	IsArray        bool
	// GenericSignature is set only when the declared type carries type
	// arguments or is a type variable.
	GenericSignature string
}

// TypeDescriptor is everything the core needs to know about one type.
type TypeDescriptor struct {
	FullyQualifiedName string
	Category           Category
	Fields             []FieldDescriptor
	Methods            []Method
}
