package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupProbe(t *testing.T) {
	tree, err := decodePayload([]byte(`{"id":42,"event":"x","data":{"commodity":"BRENT","nested":{"n":true}},"list":[1]}`))
	require.NoError(t, err)

	v, ok := lookup{"id"}.probe(tree)
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	v, ok = lookup{"data", "commodity"}.probe(tree)
	assert.True(t, ok)
	assert.Equal(t, "BRENT", v)

	_, ok = lookup{"data", "nested", "n"}.probe(tree)
	assert.False(t, ok, "booleans are not ids")
	_, ok = lookup{"data", "missing"}.probe(tree)
	assert.False(t, ok)
	_, ok = lookup{"list", "0"}.probe(tree)
	assert.False(t, ok)
	_, ok = lookup{"id", "deeper"}.probe(tree)
	assert.False(t, ok)
}

func TestFirstOf(t *testing.T) {
	tree, err := decodePayload([]byte(`{"data":{"commodity":"WTI"}}`))
	require.NoError(t, err)

	v, ok := firstOf("", tree, commodityLookups)
	assert.True(t, ok)
	assert.Equal(t, "WTI", v)

	v, ok = firstOf(" header ", tree, commodityLookups)
	assert.True(t, ok)
	assert.Equal(t, "header", v)

	_, ok = firstOf("", tree, eventIDLookups)
	assert.False(t, ok)
}

func TestDecodePayload(t *testing.T) {
	for _, ok := range []string{`{}`, `[]`, `"text"`, `12`, "  {\"a\":1}\n"} {
		_, err := decodePayload([]byte(ok))
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{``, `{`, `{} {}`, `{}}`, `nope`} {
		_, err := decodePayload([]byte(bad))
		assert.Error(t, err, bad)
	}
}
