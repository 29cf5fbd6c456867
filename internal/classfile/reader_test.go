package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TruncatedAndWrongMagic(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorContains(t, err, "unexpected end of class file")

	_, err = Parse([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	assert.ErrorIs(t, err, ErrNotClassFile)
}

func TestParse_UnknownConstantTag(t *testing.T) {
	data := []byte{
		0xCA, 0xFE, 0xBA, 0xBE,
		0x00, 0x00, 0x00, 0x3D, // version 61.0
		0x00, 0x02, // one constant
		0x63, // bogus tag
	}
	_, err := Parse(data)
	assert.ErrorContains(t, err, "unknown tag 99")
}

func TestDecodeModifiedUTF8(t *testing.T) {
	assert.Equal(t, "Order", decodeModifiedUTF8([]byte("Order")))
	// NUL is encoded on two bytes.
	assert.Equal(t, "a\x00b", decodeModifiedUTF8([]byte{'a', 0xC0, 0x80, 'b'}))
	// é
	assert.Equal(t, "café", decodeModifiedUTF8([]byte{'c', 'a', 'f', 0xC3, 0xA9}))
	// U+1F600 as a surrogate pair, each half three bytes.
	assert.Equal(t, "\U0001F600", decodeModifiedUTF8([]byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}))
}

func TestClassFile_Flags(t *testing.T) {
	cf := &ClassFile{AccessFlags: AccPublic | AccInterface | AccAbstract, ThisClass: "com/x/Outer$Inner"}
	require.True(t, cf.IsInterface())
	assert.True(t, cf.IsAbstract())
	assert.Equal(t, "com.x.Outer$Inner", cf.BinaryName())
}
