package downloadtoken

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T) (*Service, *clock.FakeClock, *Signer) {
	t.Helper()
	signer, err := NewSigner(testKey)
	require.NoError(t, err)
	clk := clock.Fake(time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC))
	return NewService(signer, clk), clk, signer
}

func craft(t *testing.T, signer *Signer, p Payload) string {
	t.Helper()
	seg, err := EncodePayload(p)
	require.NoError(t, err)
	return seg + "." + signer.Sign(seg)
}

func requireReason(t *testing.T, svc *Service, token string, want Reason) {
	t.Helper()
	_, err := svc.Validate(token)
	require.Error(t, err)
	got, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = svc.TryValidate(token)
	assert.False(t, ok)
}

func TestCreateAndValidateRoundTrip(t *testing.T) {
	svc, clk, _ := newTestService(t)
	statementID := uuid.New()
	expiresAt := clk.Now().Add(5 * time.Minute)

	token, err := svc.CreateToken(statementID, "cust-1", expiresAt)
	require.NoError(t, err)

	p, ok := svc.TryValidate(token)
	require.True(t, ok)
	assert.Equal(t, statementID, p.StatementID)
	assert.Equal(t, "cust-1", p.CustomerID)
	assert.True(t, expiresAt.Equal(p.ExpiresAt))
	assert.True(t, clk.Now().Equal(p.IssuedAt))
	assert.NotEqual(t, uuid.Nil, p.TokenID)
}

func TestTokensAreUnique(t *testing.T) {
	svc, clk, _ := newTestService(t)
	id := uuid.New()

	a, err := svc.CreateToken(id, "cust-1", clk.Now().Add(time.Minute))
	require.NoError(t, err)
	b, err := svc.CreateToken(id, "cust-1", clk.Now().Add(time.Minute))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestValidateDetectsSingleCharacterTampering(t *testing.T) {
	svc, clk, _ := newTestService(t)
	token, err := svc.CreateToken(uuid.New(), "cust-1", clk.Now().Add(5*time.Minute))
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		_, ok := svc.TryValidate(tampered)
		assert.False(t, ok, "tampered token accepted at index %d", i)
	}
}

func TestValidateRejectsStructuralProblems(t *testing.T) {
	svc, clk, signer := newTestService(t)
	token, err := svc.CreateToken(uuid.New(), "cust-1", clk.Now().Add(5*time.Minute))
	require.NoError(t, err)
	segment, signature, _ := strings.Cut(token, ".")

	tests := []struct {
		name  string
		token string
		want  Reason
	}{
		{name: "empty", token: "", want: ReasonMalformed},
		{name: "no separator", token: segment, want: ReasonMalformed},
		{name: "empty payload", token: "." + signature, want: ReasonMalformed},
		{name: "empty signature", token: segment + ".", want: ReasonMalformed},
		{name: "too long", token: strings.Repeat("a", DefaultMaxTokenLength+1), want: ReasonTooLong},
		{name: "extra segment", token: token + ".x", want: ReasonBadSignature},
		{name: "padded signature", token: token + "=", want: ReasonBadSignature},
		{name: "signed garbage", token: "bm90LWpzb24." + signer.Sign("bm90LWpzb24"), want: ReasonBadPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireReason(t, svc, tt.token, tt.want)
		})
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	svc, clk, _ := newTestService(t)
	other, err := NewSigner([]byte("another-key-that-is-32-bytes-lon"))
	require.NoError(t, err)

	token := craft(t, other, Payload{
		TokenID:     uuid.New(),
		StatementID: uuid.New(),
		CustomerID:  "cust-1",
		IssuedAt:    clk.Now(),
		ExpiresAt:   clk.Now().Add(time.Minute),
	})

	requireReason(t, svc, token, ReasonBadSignature)
}

func TestValidateLifetimeBounds(t *testing.T) {
	svc, clk, signer := newTestService(t)
	now := clk.Now()
	base := Payload{TokenID: uuid.New(), StatementID: uuid.New(), CustomerID: "cust-1", IssuedAt: now}

	zero := base
	zero.ExpiresAt = now
	requireReason(t, svc, craft(t, signer, zero), ReasonBadLifetime)

	inverted := base
	inverted.ExpiresAt = now.Add(-time.Second)
	requireReason(t, svc, craft(t, signer, inverted), ReasonBadLifetime)

	tooLong := base
	tooLong.ExpiresAt = now.Add(DefaultMaxLifetime + time.Second)
	requireReason(t, svc, craft(t, signer, tooLong), ReasonLifetimeExceeded)

	atLimit := base
	atLimit.ExpiresAt = now.Add(DefaultMaxLifetime)
	_, ok := svc.TryValidate(craft(t, signer, atLimit))
	assert.True(t, ok)
}

func TestValidateClockSkew(t *testing.T) {
	svc, clk, signer := newTestService(t)
	now := clk.Now()

	future := Payload{
		TokenID:     uuid.New(),
		StatementID: uuid.New(),
		CustomerID:  "cust-1",
		IssuedAt:    now.Add(DefaultClockSkew + time.Second),
		ExpiresAt:   now.Add(DefaultClockSkew + time.Minute),
	}
	requireReason(t, svc, craft(t, signer, future), ReasonIssuedInFuture)

	withinSkew := future
	withinSkew.IssuedAt = now.Add(DefaultClockSkew)
	_, ok := svc.TryValidate(craft(t, signer, withinSkew))
	assert.True(t, ok)
}

func TestValidateIgnoresCurrentExpiry(t *testing.T) {
	svc, clk, _ := newTestService(t)
	token, err := svc.CreateToken(uuid.New(), "cust-1", clk.Now().Add(5*time.Minute))
	require.NoError(t, err)

	clk.Advance(time.Hour)

	p, ok := svc.TryValidate(token)
	require.True(t, ok)
	assert.True(t, p.ExpiresAt.Before(clk.Now()))
}

func TestCreateTokenRejectsBadInput(t *testing.T) {
	svc, clk, _ := newTestService(t)
	now := clk.Now()

	_, err := svc.CreateToken(uuid.Nil, "cust-1", now.Add(time.Minute))
	require.ErrorIs(t, err, ErrInvalidStatementID)

	_, err = svc.CreateToken(uuid.New(), "  ", now.Add(time.Minute))
	require.ErrorIs(t, err, ErrInvalidCustomerID)

	_, err = svc.CreateToken(uuid.New(), "cust-1", now)
	require.ErrorIs(t, err, ErrInvalidExpiry)

	_, err = svc.CreateToken(uuid.New(), "cust-1", now.Add(DefaultMaxLifetime+time.Minute))
	require.ErrorIs(t, err, ErrLifetimeTooLong)
}

func TestServiceOptions(t *testing.T) {
	signer, err := NewSigner(testKey)
	require.NoError(t, err)
	clk := clock.Fake(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	svc := NewService(signer, clk, WithMaxLifetime(time.Minute), WithClockSkew(0), WithMaxTokenLength(64))

	assert.Equal(t, time.Minute, svc.MaxLifetime())

	_, err = svc.CreateToken(uuid.New(), "cust-1", clk.Now().Add(2*time.Minute))
	require.ErrorIs(t, err, ErrLifetimeTooLong)

	token, err := svc.CreateToken(uuid.New(), "cust-1", clk.Now().Add(time.Minute))
	require.NoError(t, err)
	requireReason(t, svc, token, ReasonTooLong)
}
