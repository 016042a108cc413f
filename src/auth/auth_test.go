package auth

import (
	"strings"
	"testing"

	"git.flipper.school/flipper/flipper/src/config"
	"git.flipper.school/flipper/flipper/src/fail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hashed := HashPassword("Passw0rd")
	assert.Equal(t, Argon2id, hashed.Algorithm)

	parsed, err := ParsePasswordString(hashed.String())
	require.NoError(t, err)
	assert.Equal(t, hashed, parsed)

	ok, err := CheckPassword("Passw0rd", parsed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPasswordString("passw0rd", hashed.String())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NotEqual(t, hashed.Salt, HashPassword("Passw0rd").Salt)
}

func TestParsePasswordString(t *testing.T) {
	_, err := ParsePasswordString("plaintext")
	assert.Error(t, err)

	_, err = CheckPassword("x", HashedPassword{Algorithm: "md5", AlgoConfig: "", Salt: "", Hash: ""})
	assert.Error(t, err)

	_, err = ParseArgon2idConfig("t=1,m=2")
	assert.Error(t, err)

	cfg, err := ParseArgon2idConfig("t=1,m=40960,p=1,l=64")
	require.NoError(t, err)
	assert.Equal(t, Argon2idConfig{Time: 1, Memory: 40960, Threads: 1, KeyLength: 64}, cfg)
}

func TestNewSecret(t *testing.T) {
	a, b := NewSecret(), NewSecret()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ToLower(a), a)
}

func TestPolicy(t *testing.T) {
	policy, err := NewPolicy(config.DefaultRegistrationPolicy)
	require.NoError(t, err)

	cases := []struct {
		name, username, password string
		expected                 string
	}{
		{"Jo", "jo", "x", "Name must contain at least 3 characters."},
		{strings.Repeat("a", 101), "jo", "x", "Name must contain at most 100 characters."},
		{"Johanna", "jo", "x", "Username must contain at least 4 characters."},
		{"Johanna", "johanna_the_great", "x", "Username must contain at most 15 characters."},
		{"Johanna", "jo hanna", "x", "Username contains invalid characters. Please use alphanumeric characters and underscores."},
		{"Johanna", "johanna1A", "johanna1A", "Password and email must be different."},
		{"Johanna", "johanna", "short", "Password must contain at least 8 characters."},
		{"Johanna", "johanna", strings.Repeat("aA1", 11), "Password must contain at most 32 characters."},
		{"Johanna", "johanna", "Password", "Password must contain at least one (1) Arabic numeral (0-9)."},
		{"Johanna", "johanna", "password1", "Password must contain at least one (1) uppercase English alphabet character (A-Z)."},
		{"Johanna", "johanna", "PASSWORD1", "Password must contain at least one (1) lowercase English alphabet character (a-z)."},
	}
	for _, c := range cases {
		t.Run(c.expected, func(t *testing.T) {
			err := policy.Check(c.name, c.username, c.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, fail.ErrInvalid)
			assert.Equal(t, c.expected, fail.Message(err, ""))
		})
	}

	assert.NoError(t, policy.Check("Johanna", "johanna", "Passw0rd"))
}

func TestPolicyBadPattern(t *testing.T) {
	cfg := config.DefaultRegistrationPolicy
	cfg.UsernameValid = "("
	_, err := NewPolicy(cfg)
	assert.Error(t, err)
}
