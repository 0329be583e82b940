package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "exports/rota.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	jobID, path, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "exports/rota.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	signer.ttl = -time.Minute
	token, _, err := signer.Generate("job-1", "exports/rota.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "exports/rota.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)
	parts[0] = "job-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	require.Error(t, err)

	_, _, _, err = signer.Parse("not-a-token")
	require.Error(t, err)
}

func TestSignedURLSignerWrongSecret(t *testing.T) {
	token, _, err := NewSignedURLSigner("secret-a", time.Hour).Generate("job-1", "exports/rota.csv")
	require.NoError(t, err)

	_, _, _, err = NewSignedURLSigner("secret-b", time.Hour).Parse(token)
	require.Error(t, err)
}
