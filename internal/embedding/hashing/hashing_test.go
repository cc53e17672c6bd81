package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbed_UnitLengthAndDimension(t *testing.T) {
	e := NewEmbedder(64)
	v, err := e.Embed(context.Background(), "The Lord is my shepherd; I shall not want.")
	require.NoError(t, err)
	assert.Len(t, v, 64)
	assert.InDelta(t, 1.0, norm(v), 1e-6)
	assert.Equal(t, "hashing-64", e.ModelName())
}

func TestEmbed_Deterministic(t *testing.T) {
	a := NewEmbedder(DefaultDimension)
	b := NewEmbedder(DefaultDimension)
	v1, err := a.Embed(context.Background(), "Water boils at 100 degrees.")
	require.NoError(t, err)
	v2, err := b.Embed(context.Background(), "Water boils at 100 degrees.")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestEmbed_StopwordsOnlyIsZeroVector(t *testing.T) {
	e := NewEmbedder(32)
	v, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Zero(t, norm(v))
}

func TestEmbed_SharedTermsScoreHigher(t *testing.T) {
	e := NewEmbedder(DefaultDimension)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "What color is the sky?")
	sky, _ := e.Embed(ctx, "The sky is blue.")
	paris, _ := e.Embed(ctx, "Paris is the capital of France.")
	assert.Greater(t, dot(q, sky), dot(q, paris))
}

func TestEmbed_CaseInsensitive(t *testing.T) {
	e := NewEmbedder(DefaultDimension)
	v1, _ := e.Embed(context.Background(), "HEAVEN and EARTH")
	v2, _ := e.Embed(context.Background(), "heaven and earth")
	assert.Equal(t, v1, v2)
}

func TestEmbedBatch_MatchesSingle(t *testing.T) {
	e := NewEmbedder(DefaultDimension)
	ctx := context.Background()
	texts := []string{"alpha beta", "gamma", ""}
	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))
	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestNewEmbedder_DefaultsDimension(t *testing.T) {
	assert.Equal(t, DefaultDimension, NewEmbedder(0).Dimension())
}
