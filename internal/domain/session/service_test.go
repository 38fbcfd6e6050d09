package session

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/dkoval/ragchat/pkg/errors"
)

func newTestService(ttl time.Duration) *Service {
	return NewService(Config{Secret: "test-secret", TokenTTL: ttl}, slog.Default())
}

func TestCreateAndValidateRoundTrip(t *testing.T) {
	svc := newTestService(time.Hour)

	sess, err := svc.Create()
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	claims, err := svc.Validate(sess.Token)
	require.NoError(t, err)
	require.Equal(t, sess.ID, claims.SessionID)
}

func TestValidateRejectsEmptyToken(t *testing.T) {
	svc := newTestService(time.Hour)

	_, err := svc.Validate("")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := newTestService(time.Hour)

	_, err := svc.Validate("not.a.token")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	issuer := NewService(Config{Secret: "other-secret", TokenTTL: time.Hour}, slog.Default())
	sess, err := issuer.Create()
	require.NoError(t, err)

	_, err = newTestService(time.Hour).Validate(sess.Token)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := newTestService(time.Millisecond)

	sess, err := svc.Create()
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = svc.Validate(sess.Token)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}
