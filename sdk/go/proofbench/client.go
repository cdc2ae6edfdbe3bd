// Package proofbench is a Go client for the ProofBench REST API.
package proofbench

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the ProofBench REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// Metrics is a private benchmark submission.
type Metrics struct {
	Revenue   float64            `json:"revenue"`
	Employees int                `json:"employees"`
	Industry  string             `json:"industry"`
	Custom    map[string]float64 `json:"customMetrics,omitempty"`
}

// Result is the percentile of one metric.
type Result struct {
	Metric     string `json:"metric"`
	Percentile int    `json:"percentile"`
	SampleSize int    `json:"sampleSize"`
}

// Proof is a proof artifact as returned by submit and verify.
type Proof struct {
	ProofHash         string    `json:"proofHash"`
	CompanyID         string    `json:"companyId"`
	Results           []Result  `json:"results"`
	Timestamp         time.Time `json:"timestamp"`
	Verified          bool      `json:"verified"`
	Industry          string    `json:"industry,omitempty"`
	ReferenceIndustry string    `json:"referenceIndustry,omitempty"`
	Synthesized       bool      `json:"synthesized,omitempty"`
}

// Industry describes one selectable industry.
type Industry struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	SampleSize int    `json:"sampleSize"`
}

// Quantiles summarises one metric.
type Quantiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// Benchmarks is the public benchmark view of an industry.
type Benchmarks struct {
	Industry    string               `json:"industry"`
	Label       string               `json:"label"`
	Metrics     map[string]Quantiles `json:"metrics"`
	SampleSize  int                  `json:"sampleSize"`
	LastUpdated time.Time            `json:"lastUpdated"`
}

// Stats carries aggregate statistics for an industry.
type Stats struct {
	Industry     string             `json:"industry"`
	Metrics      []string           `json:"metrics"`
	Averages     map[string]float64 `json:"averages"`
	CompanyCount int                `json:"companyCount"`
}

// Challenge is the nonce to be signed during login.
type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Token represents an issued bearer token.
type Token struct {
	AccessToken string    `json:"token"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Address     string    `json:"address"`
}

// MintRequest is the payload for minting a consent record. Proof is opaque:
// a proof hash string or any JSON-encodable artifact.
type MintRequest struct {
	DataRequestID   string `json:"dataRequestId"`
	CompanyID       string `json:"companyId"`
	PrivateDataHash string `json:"privateDataHash"`
	Proof           any    `json:"proof"`
}

// Receipt is returned by mint and revoke.
type Receipt struct {
	ConsentID string `json:"consentId"`
	TxHash    string `json:"txHash"`
}

// Consent is a consent record.
type Consent struct {
	ConsentID     string     `json:"consentId"`
	DataRequestID string     `json:"dataRequestId"`
	CompanyID     string     `json:"companyId"`
	ProofHash     string     `json:"proofHash,omitempty"`
	Owner         string     `json:"owner"`
	Valid         bool       `json:"valid"`
	Revoked       bool       `json:"revoked"`
	Timestamp     time.Time  `json:"timestamp"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty"`
	TxHash        string     `json:"txHash,omitempty"`
}

// NetworkInfo reports the adapter serving requests.
type NetworkInfo struct {
	Requested   string `json:"requested"`
	Effective   string `json:"effective"`
	Fallback    bool   `json:"fallback"`
	Reason      string `json:"reason,omitempty"`
	Network     string `json:"network,omitempty"`
	Contract    string `json:"contract,omitempty"`
	ChainID     string `json:"chainId,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	Details    string            `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("proofbench api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("proofbench api error (%d): %s", e.StatusCode, e.Message)
}

// ErrorCode returns the API error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// Signer signs a challenge message on behalf of address.
type Signer func(message string) (string, error)

// NewClient instantiates a client. When httpClient is nil, a default client
// with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Health checks the liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil, nil, false)
}

// Industries lists the accepted industries.
func (c *Client) Industries(ctx context.Context) ([]Industry, error) {
	var out []Industry
	if err := c.get(ctx, "/api/industries", nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// Benchmarks returns quantile summaries for industry.
func (c *Client) Benchmarks(ctx context.Context, industry string) (Benchmarks, error) {
	var out Benchmarks
	err := c.get(ctx, "/api/industries/"+industry+"/benchmarks", nil, &out, false)
	return out, err
}

// Stats returns aggregate statistics for industry.
func (c *Client) Stats(ctx context.Context, industry string) (Stats, error) {
	var out Stats
	err := c.get(ctx, "/api/benchmarks/stats/"+industry, nil, &out, false)
	return out, err
}

// Submit generates a proof for the metrics.
func (c *Client) Submit(ctx context.Context, m Metrics) (Proof, error) {
	var out Proof
	err := c.post(ctx, "/api/benchmarks/submit", m, &out, false)
	return out, err
}

// VerifyProof verifies a proof hash.
func (c *Client) VerifyProof(ctx context.Context, hash string) (Proof, error) {
	var out Proof
	err := c.post(ctx, "/api/proofs/verify", map[string]string{"proofHash": hash}, &out, false)
	return out, err
}

// GetProof fetches a stored proof.
func (c *Client) GetProof(ctx context.Context, hash string) (Proof, error) {
	var out Proof
	err := c.get(ctx, "/api/proofs/"+hash, nil, &out, false)
	return out, err
}

// Network reports the adapter mode.
func (c *Client) Network(ctx context.Context) (NetworkInfo, error) {
	var out NetworkInfo
	err := c.get(ctx, "/api/network", nil, &out, false)
	return out, err
}

// Challenge requests a login nonce for address.
func (c *Client) Challenge(ctx context.Context, address string) (Challenge, error) {
	var out Challenge
	err := c.get(ctx, "/api/auth/challenge", url.Values{"address": {address}}, &out, false)
	return out, err
}

// Redeem exchanges a signed nonce for a bearer token and stores it for
// subsequent calls.
func (c *Client) Redeem(ctx context.Context, address, signature, nonce string) (Token, error) {
	var token Token
	payload := map[string]string{"address": address, "signature": signature, "nonce": nonce}
	if err := c.post(ctx, "/api/auth/verify", payload, &token, false); err != nil {
		return Token{}, err
	}
	c.SetAccessToken(token.AccessToken)
	return token, nil
}

// Login runs the challenge/response flow with sign.
func (c *Client) Login(ctx context.Context, address string, sign Signer) (Token, error) {
	if sign == nil {
		return Token{}, errors.New("proofbench: signer is required")
	}
	challenge, err := c.Challenge(ctx, address)
	if err != nil {
		return Token{}, err
	}
	message := challenge.Message
	if message == "" {
		message = challenge.Nonce
	}
	signature, err := sign(message)
	if err != nil {
		return Token{}, fmt.Errorf("sign challenge: %w", err)
	}
	return c.Redeem(ctx, address, signature, challenge.Nonce)
}

// MintConsent creates a consent record owned by the authenticated caller.
func (c *Client) MintConsent(ctx context.Context, req MintRequest) (Receipt, error) {
	var out Receipt
	err := c.post(ctx, "/api/consent/mint", req, &out, true)
	return out, err
}

// GetConsent fetches a consent record.
func (c *Client) GetConsent(ctx context.Context, id string) (Consent, error) {
	var out Consent
	err := c.get(ctx, "/api/consent/"+id, nil, &out, true)
	return out, err
}

// RevokeConsent revokes a consent record.
func (c *Client) RevokeConsent(ctx context.Context, id string) (Receipt, error) {
	var out Receipt
	err := c.post(ctx, "/api/consent/"+id+"/revoke", struct{}{}, &out, true)
	return out, err
}

// AccessToken returns the currently stored token string.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken overrides the stored access token.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any, withAuth bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body), withAuth)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any, withAuth bool) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil, withAuth)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, withAuth bool) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if withAuth {
		token := c.AccessToken()
		if token == "" {
			return nil, errors.New("proofbench: access token is not set")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{}
		var env envelope
		if err := json.Unmarshal(data, &env); err == nil && env.Error != nil {
			apiErr = env.Error
		}
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return errors.New("proofbench: response carried no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
