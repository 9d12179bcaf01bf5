package uvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeCSVField(t *testing.T) {
	cases := []struct {
		name  string
		field string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"comma", "a,b", `"a,b"`},
		{"quote", `say "hi"`, `"say ""hi"""`},
		{"newline", "a\nb", "\"a\nb\""},
		{"cr", "a\rb", "\"a\rb\""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EncodeCSVField(tc.field))
		})
	}
}

func TestEncodeCSVRow(t *testing.T) {
	row := []Typed{
		{Type: Type{Kind: KindInt32}, Value: Int32{V: 7}},
		{Type: Type{Kind: KindVarChar}, Value: VarChar{V: "a,b"}},
		{Type: Type{Kind: KindNull}, Value: Null{}},
		{Type: Type{Kind: KindBool}, Value: Bool{V: true}},
	}
	got, err := EncodeCSVRow(row)
	assert.NoError(t, err)
	assert.Equal(t, `7,"a,b",,true`, got)
}
