package uvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDDLMySQLBoolIsTinyintOne(t *testing.T) {
	s, err := DDL(Type{Kind: KindBool}, DialectMySQL)
	require.NoError(t, err)
	assert.Equal(t, "TINYINT(1)", s)
}

func TestDDLPostgresDecimalUsesDeclaredPrecision(t *testing.T) {
	s, err := DDL(Type{Kind: KindDecimal, Precision: 10, Scale: 2}, DialectPostgreSQL)
	require.NoError(t, err)
	assert.Equal(t, "NUMERIC(10,2)", s)
}

func TestDDLEnumEscapesQuotes(t *testing.T) {
	s, err := DDL(Type{Kind: KindEnum, Members: []string{"a'b", "c"}}, DialectMySQL)
	require.NoError(t, err)
	assert.Contains(t, s, "'a''b'")
}

func TestDDLUnsupportedDialect(t *testing.T) {
	_, err := DDL(Type{Kind: KindBool}, Dialect("oracle"))
	assert.Error(t, err)
}
