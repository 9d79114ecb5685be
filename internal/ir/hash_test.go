package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterminism(t *testing.T) {
	h1 := ContentHash([]byte("a;\nb;"))
	h2 := ContentHash([]byte("a;\nb;"))
	h3 := ContentHash([]byte("a;\nb; "))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestDocumentHashKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"language": "stmt", "rules": []any{"x", "y"}}
	b := map[string]any{"rules": []any{"x", "y"}, "language": "stmt"}

	ha, err := DocumentHash(a)
	require.NoError(t, err)
	hb, err := DocumentHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestDomainSeparation(t *testing.T) {
	// Identical bytes in different domains must never collide.
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainSource, data), hashWithDomain(DomainDocument, data))
	assert.Equal(t, ContentHash(data), hashWithDomain(DomainSource, data))
}

func TestDocumentHashRejectsFloats(t *testing.T) {
	_, err := DocumentHash(map[string]any{"x": 1.5})
	assert.Error(t, err)
}
