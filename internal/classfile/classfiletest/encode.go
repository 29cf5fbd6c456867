// Package classfiletest builds minimal class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"

	"graffiti/internal/classfile"
)

// Class is the declaration to encode. Names use the internal form
// ("com/x/Order").
type Class struct {
	Name        string
	Super       string
	AccessFlags uint16
	Fields      []classfile.Member
	Methods     []classfile.Member
	// Long adds a long constant so encoders exercise two-slot entries.
	Long bool
}

type pool struct {
	buf   bytes.Buffer
	count uint16
	utf8  map[string]uint16
	class map[string]uint16
}

func newPool() *pool {
	return &pool{count: 1, utf8: map[string]uint16{}, class: map[string]uint16{}}
}

func (p *pool) utf(s string) uint16 {
	if i, ok := p.utf8[s]; ok {
		return i
	}
	p.buf.WriteByte(1)
	_ = binary.Write(&p.buf, binary.BigEndian, uint16(len(s)))
	p.buf.WriteString(s)
	i := p.count
	p.count++
	p.utf8[s] = i
	return i
}

func (p *pool) classRef(name string) uint16 {
	if i, ok := p.class[name]; ok {
		return i
	}
	n := p.utf(name)
	p.buf.WriteByte(7)
	_ = binary.Write(&p.buf, binary.BigEndian, n)
	i := p.count
	p.count++
	p.class[name] = i
	return i
}

func (p *pool) long() {
	p.buf.WriteByte(5)
	_ = binary.Write(&p.buf, binary.BigEndian, uint64(42))
	p.count += 2
}

// Encode returns the class file bytes for c.
func Encode(c Class) []byte {
	p := newPool()
	if c.Long {
		p.long()
	}
	this := p.classRef(c.Name)
	var super uint16
	if c.Super != "" {
		super = p.classRef(c.Super)
	}

	var body bytes.Buffer
	w := func(v any) { _ = binary.Write(&body, binary.BigEndian, v) }

	w(c.AccessFlags)
	w(this)
	w(super)
	w(uint16(0)) // interfaces

	members := func(ms []classfile.Member) {
		w(uint16(len(ms)))
		for _, m := range ms {
			w(m.AccessFlags)
			w(p.utf(m.Name))
			w(p.utf(m.Descriptor))

			var attrs uint16
			if m.Signature != "" {
				attrs++
			}
			if len(m.Exceptions) > 0 {
				attrs++
			}
			w(attrs)
			if m.Signature != "" {
				w(p.utf("Signature"))
				w(uint32(2))
				w(p.utf(m.Signature))
			}
			if len(m.Exceptions) > 0 {
				w(p.utf("Exceptions"))
				w(uint32(2 + 2*len(m.Exceptions)))
				w(uint16(len(m.Exceptions)))
				for _, ex := range m.Exceptions {
					w(p.classRef(ex))
				}
			}
		}
	}
	members(c.Fields)
	members(c.Methods)
	w(uint16(0)) // class attributes

	var out bytes.Buffer
	o := func(v any) { _ = binary.Write(&out, binary.BigEndian, v) }
	o(uint32(0xCAFEBABE))
	o(uint16(0))
	o(uint16(61))
	o(p.count)
	out.Write(p.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}
