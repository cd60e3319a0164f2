package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
)

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.0e-7}
	got, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	empty, err := decodeVector(encodeVector(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	a := Key("text-embedding-ada-002", "License Agreement")
	b := Key("text-embedding-ada-002", "License Agreement")
	c := Key("nomic-embed-text", "License Agreement")
	d := Key("text-embedding-ada-002", "Licence Agreement")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Contains(t, a, "clause:embedding:text-embedding-ada-002:")
	assert.Len(t, a, len("clause:embedding:text-embedding-ada-002:")+64)
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(domain.CacheSettings{
		Addr:     "redis:6379",
		Password: "secret",
		DB:       2,
		TTL:      domain.Duration(time.Hour),
	})
	assert.Equal(t, Config{Addr: "redis:6379", Password: "secret", DB: 2, TTL: time.Hour}, cfg)
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
