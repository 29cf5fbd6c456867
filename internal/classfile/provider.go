package classfile

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"graffiti/internal/graph"
)

// DefaultCacheSize bounds the number of decoded descriptors kept in memory.
const DefaultCacheSize = 1024

// EntryReader returns the raw class file bytes for a fully qualified name.
type EntryReader interface {
	ReadClass(fqn string) ([]byte, error)
}

// Provider describes types by decoding their class files. Decoded
// descriptors are cached, so re-running analysis over the same archive
// does not parse a class twice.
type Provider struct {
	entries EntryReader
	cache   *lru.Cache[string, *graph.TypeDescriptor]
}

// NewProvider creates a Provider backed by entries. A non-positive size
// selects DefaultCacheSize.
func NewProvider(entries EntryReader, size int) (*Provider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *graph.TypeDescriptor](size)
	if err != nil {
		return nil, fmt.Errorf("create descriptor cache: %w", err)
	}
	return &Provider{entries: entries, cache: cache}, nil
}

// Describe implements graph.DescriptorProvider.
func (p *Provider) Describe(ctx context.Context, fqn string) (*graph.TypeDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if desc, ok := p.cache.Get(fqn); ok {
		return desc, nil
	}

	data, err := p.entries.ReadClass(fqn)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fqn, err)
	}
	cf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fqn, err)
	}
	if cf.BinaryName() != fqn {
		return nil, fmt.Errorf("decode %s: class file declares %s", fqn, cf.BinaryName())
	}

	desc, err := Describe(cf)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", fqn, err)
	}
	p.cache.Add(fqn, desc)
	return desc, nil
}

// Describe converts a decoded class file into a type descriptor. Synthetic
// members, constructors and static initializers are omitted.
func Describe(cf *ClassFile) (*graph.TypeDescriptor, error) {
	desc := &graph.TypeDescriptor{
		FullyQualifiedName: cf.BinaryName(),
		Category:           categoryOf(cf),
	}

	for _, f := range cf.Fields {
		if f.AccessFlags&AccSynthetic != 0 {
			continue
		}
		ref, err := ParseFieldDescriptor(f.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fd := graph.FieldDescriptor{
			Name:             f.Name,
			DeclaredTypeName: ref.Binary,
			SimpleTypeName:   ref.Simple,
			IsPrimitive:      ref.Primitive,
			IsArray:          ref.Array,
		}
		if f.Signature != "" {
			if fd.GenericSignature, err = FieldSignatureString(f.Signature); err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		desc.Fields = append(desc.Fields, fd)
	}

	for _, m := range cf.Methods {
		if m.AccessFlags&AccSynthetic != 0 || m.Name == "<init>" || m.Name == "<clinit>" {
			continue
		}
		sig, err := MethodString(cf, m)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		desc.Methods = append(desc.Methods, graph.Method{
			Signature:  sig,
			Visibility: graph.VisibilityFromModifiers(methodModifiers(cf, m)),
		})
	}
	return desc, nil
}

func categoryOf(cf *ClassFile) graph.Category {
	switch {
	case cf.IsInterface():
		return graph.CategoryInterface
	case cf.IsAbstract():
		return graph.CategoryAbstract
	default:
		return graph.CategoryClass
	}
}

// MethodString renders a method the way java.lang.reflect.Method
// toGenericString does, e.g.
// "public <T> java.util.List<T> com.x.Repo.find(java.lang.String) throws java.io.IOException".
func MethodString(cf *ClassFile, m Member) (string, error) {
	source := m.Descriptor
	if m.Signature != "" {
		source = m.Signature
	}
	shape, err := ParseMethodSignature(source)
	if err != nil {
		return "", err
	}
	if len(shape.Throws) == 0 {
		for _, ex := range m.Exceptions {
			shape.Throws = append(shape.Throws, strings.ReplaceAll(ex, "/", "."))
		}
	}

	var sb strings.Builder
	if mods := methodModifiers(cf, m); mods != "" {
		sb.WriteString(mods)
		sb.WriteByte(' ')
	}
	if len(shape.TypeParams) > 0 {
		sb.WriteString("<" + strings.Join(shape.TypeParams, ",") + "> ")
	}
	sb.WriteString(shape.Return)
	sb.WriteByte(' ')
	sb.WriteString(cf.BinaryName())
	sb.WriteByte('.')
	sb.WriteString(m.Name)

	params := shape.Params
	if m.AccessFlags&AccVarargs != 0 && len(params) > 0 {
		params = append([]string(nil), params...)
		last := params[len(params)-1]
		if strings.HasSuffix(last, "[]") {
			params[len(params)-1] = strings.TrimSuffix(last, "[]") + "..."
		}
	}
	sb.WriteString("(" + strings.Join(params, ",") + ")")

	if len(shape.Throws) > 0 {
		sb.WriteString(" throws " + strings.Join(shape.Throws, ","))
	}
	return sb.String(), nil
}

var methodModifierOrder = []struct {
	flag uint16
	name string
}{
	{AccPublic, "public"},
	{AccProtected, "protected"},
	{AccPrivate, "private"},
	{AccAbstract, "abstract"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSynchronized, "synchronized"},
	{AccNative, "native"},
	{AccStrict, "strictfp"},
}

// methodModifiers follows java.lang.reflect.Modifier ordering; public
// non-abstract instance methods of interfaces are marked "default".
func methodModifiers(cf *ClassFile, m Member) string {
	isDefault := cf.IsInterface() && m.AccessFlags&(AccAbstract|AccPublic|AccStatic) == AccPublic

	var mods []string
	for i, mod := range methodModifierOrder {
		if i == 3 && isDefault { // after the access modifiers
			mods = append(mods, "default")
		}
		if m.AccessFlags&mod.flag != 0 {
			mods = append(mods, mod.name)
		}
	}
	return strings.Join(mods, " ")
}
