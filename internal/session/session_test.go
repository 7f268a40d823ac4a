package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionHasFreshIdentifiers(t *testing.T) {
	s1 := New()
	s2 := New()

	assert.NotEmpty(t, s1.ID)
	assert.NotEmpty(t, s1.TraceID)
	assert.NotEqual(t, s1.ID, s2.ID)
	assert.NotEqual(t, s1.TraceID, s2.TraceID)
	assert.False(t, s1.StartedAt.IsZero())
	assert.NotNil(t, s1.Baggage)
}

func TestNewSpanReplacesSpanID(t *testing.T) {
	s := New()
	first := s.SpanID

	next := s.NewSpan()
	assert.NotEqual(t, first, next)
	assert.Equal(t, next, s.SpanID)
}

func TestHostConfigRepository(t *testing.T) {
	repo := NewInMemoryHostConfigRepository()
	repo.AddConfig(HostConfig{Key: "rzp_test_key", DisplayName: "Acme Store", DefaultCurrency: "INR"})

	cfg, err := repo.Get("rzp_test_key")
	require.NoError(t, err)
	assert.Equal(t, "Acme Store", cfg.DisplayName)
	assert.Equal(t, "INR", cfg.DefaultCurrency)

	_, err = repo.Get("missing")
	assert.Error(t, err)
}
