// Package classfile decodes the structural parts of JVM class files: the
// constant pool, access flags, fields, methods and their Signature
// attributes. Code attributes are skipped.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const magic = 0xCAFEBABE

// Access flags used by the structural view.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// constant pool tags
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// ErrNotClassFile is returned when the magic number does not match.
var ErrNotClassFile = errors.New("not a class file")

// Member is a declared field or method.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Signature   string
	Exceptions  []string
}

// ClassFile is the structural view of one class file.
type ClassFile struct {
	MajorVersion uint16
	AccessFlags  uint16
	ThisClass    string
	SuperClass   string
	Interfaces   []string
	Fields       []Member
	Methods      []Member
	Signature    string
}

// IsInterface reports whether the class file declares an interface.
func (c *ClassFile) IsInterface() bool { return c.AccessFlags&AccInterface != 0 }

// IsAbstract reports whether the class file is abstract.
func (c *ClassFile) IsAbstract() bool { return c.AccessFlags&AccAbstract != 0 }

// BinaryName returns the dotted binary name, e.g. "com.x.Outer$Inner".
func (c *ClassFile) BinaryName() string {
	return strings.ReplaceAll(c.ThisClass, "/", ".")
}

type cpEntry struct {
	tag   uint8
	utf8  string
	index uint16 // Class, String, MethodType, Module, Package
}

type reader struct {
	buf []byte
	off int
	cp  []cpEntry
}

// Parse decodes a class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{buf: data}
	cf, err := r.parse()
	if err != nil {
		return nil, fmt.Errorf("parse class file at offset %d: %w", r.off, err)
	}
	return cf, nil
}

func (r *reader) parse() (*ClassFile, error) {
	m, err := r.u4()
	if err != nil {
		return nil, err
	}
	if m != magic {
		return nil, ErrNotClassFile
	}
	if _, err := r.u2(); err != nil { // minor
		return nil, err
	}
	major, err := r.u2()
	if err != nil {
		return nil, err
	}

	if err := r.readConstantPool(); err != nil {
		return nil, err
	}

	cf := &ClassFile{MajorVersion: major}
	if cf.AccessFlags, err = r.u2(); err != nil {
		return nil, err
	}
	if cf.ThisClass, err = r.classRef(); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = r.classRef(); err != nil {
		return nil, err
	}

	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(n); i++ {
		iface, err := r.classRef()
		if err != nil {
			return nil, err
		}
		cf.Interfaces = append(cf.Interfaces, iface)
	}

	if cf.Fields, err = r.members(); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if cf.Methods, err = r.members(); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}

	attrs, err := r.attributes()
	if err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}
	cf.Signature = attrs.signature

	return cf, nil
}

func (r *reader) readConstantPool() error {
	count, err := r.u2()
	if err != nil {
		return err
	}
	r.cp = make([]cpEntry, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return err
		}
		e := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			n, err := r.u2()
			if err != nil {
				return err
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return err
			}
			e.utf8 = decodeModifiedUTF8(b)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			if e.index, err = r.u2(); err != nil {
				return err
			}
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			if err := r.skip(4); err != nil {
				return err
			}
		case tagLong, tagDouble:
			if err := r.skip(8); err != nil {
				return err
			}
			r.cp[i] = e
			i++ // eight-byte constants take two slots
			continue
		case tagMethodHandle:
			if err := r.skip(3); err != nil {
				return err
			}
		default:
			return fmt.Errorf("constant pool entry %d: unknown tag %d", i, tag)
		}
		r.cp[i] = e
	}
	return nil
}

func (r *reader) members() ([]Member, error) {
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, n)
	for i := 0; i < int(n); i++ {
		var m Member
		if m.AccessFlags, err = r.u2(); err != nil {
			return nil, err
		}
		if m.Name, err = r.utf8Ref(); err != nil {
			return nil, err
		}
		if m.Descriptor, err = r.utf8Ref(); err != nil {
			return nil, err
		}
		attrs, err := r.attributes()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
		m.Signature = attrs.signature
		m.Exceptions = attrs.exceptions
		out = append(out, m)
	}
	return out, nil
}

type memberAttrs struct {
	signature  string
	exceptions []string
}

func (r *reader) attributes() (memberAttrs, error) {
	var out memberAttrs
	n, err := r.u2()
	if err != nil {
		return out, err
	}
	for i := 0; i < int(n); i++ {
		name, err := r.utf8Ref()
		if err != nil {
			return out, err
		}
		length, err := r.u4()
		if err != nil {
			return out, err
		}
		body, err := r.bytes(int(length))
		if err != nil {
			return out, err
		}
		switch name {
		case "Signature":
			if len(body) != 2 {
				return out, fmt.Errorf("malformed Signature attribute")
			}
			if out.signature, err = r.utf8At(binary.BigEndian.Uint16(body)); err != nil {
				return out, err
			}
		case "Exceptions":
			if len(body) < 2 {
				return out, fmt.Errorf("malformed Exceptions attribute")
			}
			count := int(binary.BigEndian.Uint16(body))
			if len(body) != 2+2*count {
				return out, fmt.Errorf("malformed Exceptions attribute")
			}
			for j := 0; j < count; j++ {
				idx := binary.BigEndian.Uint16(body[2+2*j:])
				ex, err := r.classAt(idx)
				if err != nil {
					return out, err
				}
				out.exceptions = append(out.exceptions, ex)
			}
		}
	}
	return out, nil
}

func (r *reader) classRef() (string, error) {
	idx, err := r.u2()
	if err != nil {
		return "", err
	}
	if idx == 0 {
		return "", nil // java/lang/Object and module-info have no super class
	}
	return r.classAt(idx)
}

func (r *reader) classAt(idx uint16) (string, error) {
	if int(idx) >= len(r.cp) || r.cp[idx].tag != tagClass {
		return "", fmt.Errorf("constant pool index %d is not a class", idx)
	}
	return r.utf8At(r.cp[idx].index)
}

func (r *reader) utf8Ref() (string, error) {
	idx, err := r.u2()
	if err != nil {
		return "", err
	}
	return r.utf8At(idx)
}

func (r *reader) utf8At(idx uint16) (string, error) {
	if int(idx) >= len(r.cp) || r.cp[idx].tag != tagUtf8 {
		return "", fmt.Errorf("constant pool index %d is not utf8", idx)
	}
	return r.cp[idx].utf8, nil
}

func (r *reader) u1() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u2() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u4() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("unexpected end of class file")
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// decodeModifiedUTF8 handles the JVM's modified UTF-8: NUL encoded as two
// bytes and supplementary characters as surrogate pairs.
func decodeModifiedUTF8(b []byte) string {
	var sb strings.Builder
	var pending rune = -1
	flush := func() {
		if pending >= 0 {
			sb.WriteRune(pending)
			pending = -1
		}
	}
	for i := 0; i < len(b); {
		c := b[i]
		var r rune
		switch {
		case c < 0x80:
			r = rune(c)
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			r = rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			r = rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			i += 3
		default:
			r = rune(c)
			i++
		}
		if r >= 0xD800 && r <= 0xDBFF {
			flush()
			pending = r
			continue
		}
		if r >= 0xDC00 && r <= 0xDFFF && pending >= 0 {
			sb.WriteRune(((pending - 0xD800) << 10) + (r - 0xDC00) + 0x10000)
			pending = -1
			continue
		}
		flush()
		sb.WriteRune(r)
	}
	flush()
	return sb.String()
}
