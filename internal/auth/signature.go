package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureVerifier checks that signature was produced by identity over message.
type SignatureVerifier interface {
	Verify(identity, message, signature string) error
}

// AcceptAnySignature accepts every signature. It is only suitable for the
// mock network, where possession of the nonce is the sole proof.
type AcceptAnySignature struct{}

// Verify implements SignatureVerifier.
func (AcceptAnySignature) Verify(string, string, string) error { return nil }

// EthereumVerifier recovers the signer of an EIP-191 personal_sign signature
// and compares it with the claimed address.
type EthereumVerifier struct{}

var errSignatureMismatch = errors.New("signature does not match address")

// Verify implements SignatureVerifier.
func (EthereumVerifier) Verify(identity, message, signature string) error {
	if !common.IsHexAddress(identity) {
		return fmt.Errorf("invalid address %q", identity)
	}
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return errors.New("invalid signature recovery id")
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("recover public key: %w", err)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(identity) {
		return errSignatureMismatch
	}
	return nil
}

// SignMessage produces a personal_sign style signature (V in {27,28}) over
// message. Used by the CLI login flow and tests.
func SignMessage(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
