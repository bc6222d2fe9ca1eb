package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errWhatsAppDown = errors.New("whatsapp api unreachable")

func TestCircuitBreaker_AbreTrasFallosConsecutivos(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return errWhatsAppDown })
		assert.ErrorIs(t, err, errWhatsAppDown)
	}
	assert.Equal(t, CBOpen, cb.State())

	// Mientras está abierto ni siquiera invoca fn
	llamado := false
	err := cb.Execute(func() error { llamado = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, llamado)
}

func TestCircuitBreaker_ExitoReiniciaElContador(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Minute})

	require.Error(t, cb.Execute(func() error { return errWhatsAppDown }))
	require.Error(t, cb.Execute(func() error { return errWhatsAppDown }))
	require.NoError(t, cb.Execute(func() error { return nil }))

	// Dos fallos más no alcanzan el umbral porque el éxito reinició la cuenta
	require.Error(t, cb.Execute(func() error { return errWhatsAppDown }))
	require.Error(t, cb.Execute(func() error { return errWhatsAppDown }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenCierraConExitos(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Millisecond})

	require.Error(t, cb.Execute(func() error { return errWhatsAppDown }))
	require.Equal(t, CBOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, CBHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	require.Equal(t, CBHalfOpen, cb.State(), "un solo éxito aún no cierra")
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenReabreConFallo(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Millisecond})

	require.Error(t, cb.Execute(func() error { return errWhatsAppDown }))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, CBHalfOpen, cb.State())

	require.Error(t, cb.Execute(func() error { return errWhatsAppDown }))
	assert.Equal(t, CBOpen, cb.State())
}
