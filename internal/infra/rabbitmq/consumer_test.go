package rabbitmq

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fiapx/chromakey-processing-service/internal/domain/port"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, base, backoff(base, 0))
	assert.Equal(t, base, backoff(base, 1))
	assert.Equal(t, 400*time.Millisecond, backoff(base, 3))
	assert.Equal(t, maxBackoff, backoff(base, 20))
	assert.Equal(t, maxBackoff, backoff(2*time.Minute, 1))
}

func TestAttemptFromHeaders(t *testing.T) {
	assert.Equal(t, 1, attemptFromHeaders(nil))
	assert.Equal(t, 1, attemptFromHeaders(amqp.Table{"x-death": "garbage"}))
	assert.Equal(t, 3, attemptFromHeaders(amqp.Table{
		"x-death": []interface{}{amqp.Table{}, amqp.Table{}, amqp.Table{}},
	}))
}

func TestAttemptForPrefersHandlerAttempt(t *testing.T) {
	deaths := amqp.Table{"x-death": []interface{}{amqp.Table{}}}
	retry := fmt.Errorf("execute: %w", &port.RetryError{Attempt: 4, Err: errors.New("download")})

	assert.Equal(t, 4, attemptFor(retry, deaths))
	assert.Equal(t, 1, attemptFor(errors.New("db down"), nil))
	assert.Equal(t, 1, attemptFor(&port.RetryError{Err: errors.New("no attempt")}, nil))

	base := 100 * time.Millisecond
	assert.Equal(t, 800*time.Millisecond, backoff(base, attemptFor(retry, nil)))
}
