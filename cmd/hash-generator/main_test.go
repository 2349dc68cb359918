package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(strings.NewReader("first-password\n\nsecond-password\n"), &out, bcrypt.MinCost, nil))

	hashes := strings.Fields(out.String())
	require.Len(t, hashes, 2)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashes[0]), []byte("first-password")))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashes[1]), []byte("second-password")))
}

func TestRun_RejectsShortPassword(t *testing.T) {
	var out bytes.Buffer
	err := run(nil, &out, bcrypt.MinCost, []string{"short"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, out.String())
}
