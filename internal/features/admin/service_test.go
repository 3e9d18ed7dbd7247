package admin

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lingvo-api/internal/common"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=65536,t=3,p=2$")

	assert.True(t, VerifyPassword("s3cret", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("s3cret", "not-a-hash"))
	assert.False(t, VerifyPassword("s3cret", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA"))
}

func TestAuthorize(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	svc := NewService(hash)

	assert.NoError(t, svc.Authorize("10.0.0.1", "s3cret"))
	assert.ErrorIs(t, svc.Authorize("10.0.0.1", "nope"), common.ErrWrongPassword)
}

func TestAuthorizeDisabled(t *testing.T) {
	svc := NewService("")
	assert.False(t, svc.Enabled())
	assert.ErrorIs(t, svc.Authorize("10.0.0.1", "anything"), common.ErrAdminDisabled)
}

func TestAuthorizeLocksOutAfterThreeFailures(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	svc := NewService(hash)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, svc.Authorize("10.0.0.1", "bad"), common.ErrWrongPassword)
	}
	assert.ErrorIs(t, svc.Authorize("10.0.0.1", "s3cret"), common.ErrTooManyAttempts)
	assert.NoError(t, svc.Authorize("10.0.0.2", "s3cret"), "другой адрес не заблокирован")

	now = now.Add(61 * time.Minute)
	assert.NoError(t, svc.Authorize("10.0.0.1", "s3cret"))
}

func TestAuthorizeConcurrentGuessesRespectLimit(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	svc := NewService(hash)

	const guesses = 6
	errs := make([]error, guesses)
	var wg sync.WaitGroup
	for i := range guesses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.Authorize("10.0.0.1", "bad")
		}()
	}
	wg.Wait()

	var wrong, locked int
	for _, err := range errs {
		switch {
		case errors.Is(err, common.ErrWrongPassword):
			wrong++
		case errors.Is(err, common.ErrTooManyAttempts):
			locked++
		}
	}
	assert.Equal(t, maxFailedAttempts, wrong, "хеш проверяется не больше трёх раз")
	assert.Equal(t, guesses-maxFailedAttempts, locked)
}
