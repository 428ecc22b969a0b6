package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewService("test-secret", time.Hour)

	token, userID, err := s.IssueGuest()
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	got, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestIssueGuest_DistinctIdentities(t *testing.T) {
	s := NewService("test-secret", time.Hour)

	_, first, err := s.IssueGuest()
	require.NoError(t, err)
	_, second, err := s.IssueGuest()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)

	token, _, err := issuer.IssueGuest()
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	s := NewService("test-secret", -time.Minute)

	token, _, err := s.IssueGuest()
	require.NoError(t, err)

	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	s := NewService("test-secret", time.Hour)

	_, err := s.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
