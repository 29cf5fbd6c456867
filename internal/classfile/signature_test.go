package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldDescriptor(t *testing.T) {
	cases := []struct {
		desc string
		want TypeRef
	}{
		{"I", TypeRef{Binary: "int", Simple: "int", TypeName: "int", Primitive: true}},
		{"Z", TypeRef{Binary: "boolean", Simple: "boolean", TypeName: "boolean", Primitive: true}},
		{"Ljava/lang/String;", TypeRef{Binary: "java.lang.String", Simple: "String", TypeName: "java.lang.String"}},
		{"Lcom/x/Outer$Inner;", TypeRef{Binary: "com.x.Outer$Inner", Simple: "Inner", TypeName: "com.x.Outer$Inner"}},
		{"[Ljava/lang/String;", TypeRef{Binary: "[Ljava.lang.String;", Simple: "String[]", TypeName: "java.lang.String[]", Array: true}},
		{"[[I", TypeRef{Binary: "[[I", Simple: "int[][]", TypeName: "int[][]", Array: true}},
	}
	for _, tc := range cases {
		got, err := ParseFieldDescriptor(tc.desc)
		require.NoError(t, err, tc.desc)
		assert.Equal(t, tc.want, got, tc.desc)
	}
}

func TestParseFieldDescriptor_Invalid(t *testing.T) {
	for _, desc := range []string{"", "V", "[", "Q", "Ljava/lang/String", "[V"} {
		_, err := ParseFieldDescriptor(desc)
		assert.Error(t, err, desc)
	}
}

func TestFieldSignatureString(t *testing.T) {
	cases := map[string]string{
		"Ljava/util/Map<Ljava/lang/String;Ljava/lang/String;>;":          "java.util.Map<java.lang.String, java.lang.String>",
		"Ljava/util/List<+Ljava/lang/Number;>;":                           "java.util.List<? extends java.lang.Number>",
		"Ljava/util/List<-TT;>;":                                          "java.util.List<? super T>",
		"Ljava/util/List<*>;":                                             "java.util.List<?>",
		"TT;":                                                             "T",
		"[TT;":                                                            "T[]",
		"Ljava/util/Map<Ljava/lang/String;Ljava/util/List<[I>;>;":         "java.util.Map<java.lang.String, java.util.List<int[]>>",
		"Lcom/x/Outer<Ljava/lang/String;>.Inner<Ljava/lang/Integer;>;":    "com.x.Outer<java.lang.String>$Inner<java.lang.Integer>",
	}
	for sig, want := range cases {
		got, err := FieldSignatureString(sig)
		require.NoError(t, err, sig)
		assert.Equal(t, want, got, sig)
	}
}

func TestFieldSignatureString_Malformed(t *testing.T) {
	for _, sig := range []string{"Ljava/util/List<", "TT", "Ljava/util/List;X", "L;"} {
		_, err := FieldSignatureString(sig)
		assert.Error(t, err, sig)
	}
}

func TestParseMethodSignature(t *testing.T) {
	m, err := ParseMethodSignature("(ILjava/lang/String;[J)V")
	require.NoError(t, err)
	assert.Equal(t, []string{"int", "java.lang.String", "long[]"}, m.Params)
	assert.Equal(t, "void", m.Return)
	assert.Empty(t, m.TypeParams)

	m, err = ParseMethodSignature("<T:Ljava/lang/Object;K::Ljava/lang/Comparable<TK;>;>(TK;)Ljava/util/List<TT;>;^Ljava/io/IOException;")
	require.NoError(t, err)
	assert.Equal(t, []string{"T", "K extends java.lang.Comparable<K>"}, m.TypeParams)
	assert.Equal(t, []string{"K"}, m.Params)
	assert.Equal(t, "java.util.List<T>", m.Return)
	assert.Equal(t, []string{"java.io.IOException"}, m.Throws)
}

func TestParseMethodSignature_Malformed(t *testing.T) {
	for _, sig := range []string{"", "(I", "()", "<T>()V", "<T:()V", "(I)VX"} {
		_, err := ParseMethodSignature(sig)
		assert.Error(t, err, sig)
	}
}
