package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ProofBench/internal/auth"
	"ProofBench/internal/benchmark"
	"ProofBench/internal/consent"
	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/proof"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := s.adapter.Info()
	writeData(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"mode":      info.Effective,
		"timestamp": s.clock().UTC(),
	}, "")
}

func (s *Server) handleIndustries(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.catalog.ListIndustries(), "")
}

func (s *Server) industryParam(r *http.Request) (benchmark.Industry, error) {
	raw := chi.URLParam(r, "industry")
	industry, ok := benchmark.ParseIndustry(raw)
	if !ok {
		return "", xerrors.Validation("Invalid industry selection", map[string]string{"industry": "Invalid industry selection"})
	}
	return industry, nil
}

func (s *Server) handleIndustryBenchmarks(w http.ResponseWriter, r *http.Request) {
	industry, err := s.industryParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, s.catalog.Benchmarks(industry), "")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	industry, err := s.industryParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, s.catalog.Stats(industry), "")
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var m benchmark.Metrics
	if err := decodeJSON(r, &m); err != nil {
		s.writeError(w, r, err)
		return
	}
	artifact, err := s.adapter.GenerateProof(r.Context(), m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, artifact, "Benchmark proof generated")
}

type verifyProofRequest struct {
	ProofHash string `json:"proofHash"`
}

func (s *Server) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	var req verifyProofRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	hash := strings.TrimSpace(req.ProofHash)
	if hash == "" {
		s.writeError(w, r, xerrors.New(xerrors.CodeMissingProofHash, "Proof hash is required"))
		return
	}
	if !proof.ValidHash(hash) {
		s.writeError(w, r, xerrors.New(xerrors.CodeInvalidProof, "Invalid proof hash or verification failed"))
		return
	}
	s.respondProof(w, r, hash)
}

func (s *Server) handleGetProof(w http.ResponseWriter, r *http.Request) {
	s.respondProof(w, r, chi.URLParam(r, "proofHash"))
}

func (s *Server) respondProof(w http.ResponseWriter, r *http.Request, hash string) {
	artifact, err := s.adapter.VerifyProof(r.Context(), hash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, artifact, "")
}

type challengeResponse struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := s.auth.IssueChallenge(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, challengeResponse{
		Address:   challenge.Identity,
		Nonce:     challenge.Nonce,
		Message:   challenge.Nonce,
		ExpiresAt: challenge.ExpiresAt,
	}, "Sign the nonce with your wallet")
}

type redeemRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.auth.Redeem(r.Context(), req.Address, req.Signature, req.Nonce)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, token, "Authentication successful")
}

func (s *Server) handleNetwork(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.adapter.Info(), "")
}

func callerIdentity(r *http.Request) string {
	if identity := auth.IdentityFromContext(r.Context()); identity != nil {
		return identity.Address
	}
	return ""
}

func (s *Server) handleMintConsent(w http.ResponseWriter, r *http.Request) {
	var req consent.MintRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	receipt, err := s.adapter.MintConsent(r.Context(), callerIdentity(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, receipt, "Consent minted")
}

func (s *Server) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	record, err := s.adapter.VerifyConsent(r.Context(), chi.URLParam(r, "consentId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, record, "")
}

func (s *Server) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.adapter.RevokeConsent(r.Context(), callerIdentity(r), chi.URLParam(r, "consentId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, receipt, "Consent revoked")
}
