package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	xerrors "ProofBench/internal/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T, clock *fakeClock, opts ...Option) (*Service, *MemoryChallengeStore) {
	t.Helper()
	store := NewMemoryChallengeStore()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc, err := NewService(Config{Secret: "test-secret", Issuer: "proofbench"}, store, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestIssueChallengeNormalizesIdentity(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc, store := newTestService(t, clock)

	challenge, err := svc.IssueChallenge(context.Background(), "  0xABCdef  ")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if challenge.Identity != "0xabcdef" || len(challenge.Nonce) != 32 {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	if !challenge.ExpiresAt.Equal(clock.Now().Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry: %s", challenge.ExpiresAt)
	}

	again, _ := svc.IssueChallenge(context.Background(), "0xabcdef")
	if again.Nonce == challenge.Nonce || store.Len() != 1 {
		t.Fatal("second challenge must overwrite the first")
	}
	if _, err := svc.Redeem(context.Background(), "0xabcdef", "sig", challenge.Nonce); !errors.Is(err, ErrInvalidChallenge) {
		t.Fatalf("overwritten nonce must be rejected, got %v", err)
	}
}

func TestIssueChallengeRequiresIdentity(t *testing.T) {
	svc, _ := newTestService(t, &fakeClock{now: time.Now()})
	if _, err := svc.IssueChallenge(context.Background(), " "); xerrors.CodeOf(err) != xerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRedeemSingleUse(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc, _ := newTestService(t, clock)
	challenge, _ := svc.IssueChallenge(context.Background(), "0xabc")

	token, err := svc.Redeem(context.Background(), "0xABC", "sig", challenge.Nonce)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if token.TokenType != "Bearer" || token.ExpiresIn != 3600 {
		t.Fatalf("unexpected token: %+v", token)
	}
	identity, err := svc.Authorize(token.AccessToken)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if identity.Address != "0xabc" || len(identity.Methods) != 1 || identity.Methods[0] != "wallet-signature" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := svc.Redeem(context.Background(), "0xabc", "sig", challenge.Nonce); !errors.Is(err, ErrInvalidChallenge) {
		t.Fatalf("second redemption must fail, got %v", err)
	}
}

func TestRedeemWrongNonce(t *testing.T) {
	svc, store := newTestService(t, &fakeClock{now: time.Now()})
	challenge, _ := svc.IssueChallenge(context.Background(), "0xabc")

	_, err := svc.Redeem(context.Background(), "0xabc", "sig", "deadbeef")
	if xerrors.CodeOf(err) != xerrors.CodeInvalidChallenge {
		t.Fatalf("expected invalid challenge, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatal("failed redemption must keep the challenge")
	}
	if _, err := svc.Redeem(context.Background(), "0xabc", "sig", challenge.Nonce); err != nil {
		t.Fatalf("correct nonce should still redeem: %v", err)
	}
}

func TestRedeemExpiryBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(t, clock)

	challenge, _ := svc.IssueChallenge(context.Background(), "0xabc")
	if challenge.Expired(challenge.ExpiresAt) {
		t.Fatal("challenge must still be live at its expiry instant")
	}
	if !challenge.Expired(challenge.ExpiresAt.Add(time.Nanosecond)) {
		t.Fatal("challenge must be dead after its expiry instant")
	}

	clock.Advance(5*time.Minute + time.Millisecond)
	if _, err := svc.Redeem(context.Background(), "0xabc", "sig", challenge.Nonce); !errors.Is(err, ErrInvalidChallenge) {
		t.Fatalf("expired challenge must fail, got %v", err)
	}
}

func TestRedeemMissingFields(t *testing.T) {
	svc, _ := newTestService(t, &fakeClock{now: time.Now()})
	_, err := svc.Redeem(context.Background(), "", "", "")
	e, ok := xerrors.From(err)
	if !ok || e.Code() != xerrors.CodeValidation || len(e.Fields()) != 3 {
		t.Fatalf("expected three validation fields, got %v", err)
	}
}

func TestRedeemWithEthereumSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	svc, store := newTestService(t, &fakeClock{now: time.Now()}, WithVerifier(EthereumVerifier{}))
	challenge, err := svc.IssueChallenge(context.Background(), address)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other, _ := crypto.GenerateKey()
	forged, _ := SignMessage(other, challenge.Nonce)
	if _, err := svc.Redeem(context.Background(), address, forged, challenge.Nonce); xerrors.CodeOf(err) != xerrors.CodeInvalidChallenge {
		t.Fatalf("forged signature must fail, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatal("bad signature must not consume the challenge")
	}

	signature, err := SignMessage(key, challenge.Nonce)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	token, err := svc.Redeem(context.Background(), address, signature, challenge.Nonce)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if token.Identity != strings.ToLower(address) {
		t.Fatalf("unexpected subject %s", token.Identity)
	}
}

func TestEthereumVerifierRejectsMalformed(t *testing.T) {
	v := EthereumVerifier{}
	if err := v.Verify("not-an-address", "m", "0x00"); err == nil {
		t.Fatal("expected address error")
	}
	if err := v.Verify("0x0000000000000000000000000000000000000001", "m", "0x1234"); err == nil {
		t.Fatal("expected length error")
	}
}

func TestAuthorizeRejectsBadTokens(t *testing.T) {
	clock := &fakeClock{now: time.Now().Add(-3 * time.Hour)}
	svc, _ := newTestService(t, clock)
	challenge, _ := svc.IssueChallenge(context.Background(), "0xabc")
	expired, err := svc.Redeem(context.Background(), "0xabc", "sig", challenge.Nonce)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	other, _ := NewService(Config{Secret: "other-secret"}, NewMemoryChallengeStore())
	otherChallenge, _ := other.IssueChallenge(context.Background(), "0xabc")
	foreign, _ := other.Redeem(context.Background(), "0xabc", "sig", otherChallenge.Nonce)

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not.a.token",
		"expired":   expired.AccessToken,
		"signature": foreign.AccessToken,
	}
	for name, token := range cases {
		if _, err := svc.Authorize(token); xerrors.CodeOf(err) != xerrors.CodeUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
	if _, err := svc.AuthorizeHeader("Basic abc"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	svc, _ := newTestService(t, &fakeClock{now: time.Now()})
	challenge, _ := svc.IssueChallenge(context.Background(), "0xabc")
	token, _ := svc.Redeem(context.Background(), "0xabc", "sig", challenge.Nonce)

	var seen atomic.Value
	handler := svc.Middleware(MiddlewareConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(IdentityFromContext(r.Context()).Address)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/consent/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/consent/x", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || seen.Load() != "0xabc" {
		t.Fatalf("unexpected response %d identity %v", rec.Code, seen.Load())
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc, store := newTestService(t, clock)
	_, _ = svc.IssueChallenge(context.Background(), "0xa")
	clock.Advance(3 * time.Minute)
	_, _ = svc.IssueChallenge(context.Background(), "0xb")
	clock.Advance(3 * time.Minute)

	if removed := svc.SweepOnce(context.Background()); removed != 1 {
		t.Fatalf("expected one expired challenge, got %d", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one live challenge, got %d", store.Len())
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	svc, _ := newTestService(t, &fakeClock{now: time.Now()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunSweeper(ctx, time.Millisecond) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRedeemFailuresAreAuthErrors(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(t, clock)
	ctx := context.Background()

	if _, err := svc.IssueChallenge(ctx, "0xabc"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err := svc.Redeem(ctx, "0xabc", "sig", "wrong")
	if xerrors.KindOf(err) != xerrors.KindAuth {
		t.Fatalf("wrong nonce: kind %s, err %v", xerrors.KindOf(err), err)
	}

	challenge, _ := svc.IssueChallenge(ctx, "0xabc")
	clock.Advance(defaultChallengeTTL + time.Second)
	_, err = svc.Redeem(ctx, "0xabc", "sig", challenge.Nonce)
	if xerrors.CodeOf(err) != xerrors.CodeInvalidChallenge || xerrors.KindOf(err) != xerrors.KindAuth {
		t.Fatalf("expired redeem: code %s kind %s", xerrors.CodeOf(err), xerrors.KindOf(err))
	}
}
