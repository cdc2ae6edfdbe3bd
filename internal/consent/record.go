package consent

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	xerrors "ProofBench/internal/errors"
)

const (
	// IDPrefix 标记同意书 ID。
	IDPrefix = "consent_"
	// MockTxPrefix 为 mock 网络生成的交易引用前缀。
	MockTxPrefix = "0xmocktx_"
)

var (
	ErrConsentNotFound = xerrors.New(xerrors.CodeConsentNotFound, "Consent not found")
	ErrConsentConflict = xerrors.New(xerrors.CodeConflict, "consent id already exists")
	ErrNotOwner        = xerrors.New(xerrors.CodeForbidden, "Only the consent owner may revoke it")
)

// Status 为同意书的生命周期状态。
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Record 是一条同意书记录。Revoked 为 true 时 Valid 必然为 false，且不可恢复。
type Record struct {
	ID            string     `json:"consentId"`
	DataRequestID string     `json:"dataRequestId"`
	CompanyID     string     `json:"companyId"`
	ProofHash     string     `json:"proofHash,omitempty"`
	Owner         string     `json:"owner"`
	Valid         bool       `json:"valid"`
	Revoked       bool       `json:"revoked"`
	CreatedAt     time.Time  `json:"timestamp"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty"`
	TxRef         string     `json:"txHash,omitempty"`
}

// Status 返回记录当前状态。
func (r *Record) Status() Status {
	if r.Revoked {
		return StatusRevoked
	}
	return StatusActive
}

// Clone 返回深拷贝。
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.RevokedAt != nil {
		at := *r.RevokedAt
		clone.RevokedAt = &at
	}
	return &clone
}

// revoke 执行 Active -> Revoked 迁移，已撤销的记录保持不变并返回 false。
func (r *Record) revoke(txRef string, at time.Time) bool {
	if r.Revoked {
		r.Valid = false
		return false
	}
	r.Revoked = true
	r.Valid = false
	r.TxRef = txRef
	revokedAt := at.UTC()
	r.RevokedAt = &revokedAt
	return true
}

// MintRequest 为铸造同意书的入参。Proof 是不透明的证明载荷，可以是证明哈希字符串，
// 也可以是任意 JSON 对象。
type MintRequest struct {
	DataRequestID   string          `json:"dataRequestId"`
	CompanyID       string          `json:"companyId"`
	PrivateDataHash string          `json:"privateDataHash"`
	Proof           json.RawMessage `json:"proof,omitempty"`
}

// ProofString 以字符串形式构造证明载荷。
func ProofString(hash string) json.RawMessage {
	raw, _ := json.Marshal(hash)
	return raw
}

// HasProof 判断证明载荷是否存在。空、null 与空白字符串都视为缺失。
func (r MintRequest) HasProof() bool {
	raw := bytes.TrimSpace(r.Proof)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// ProofReference 返回记录中保存的证明引用：字符串载荷原样返回，
// 对象载荷取其 proofHash 或 hash 字段，其余情况为空。
func (r MintRequest) ProofReference() string {
	raw := bytes.TrimSpace(r.Proof)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		ProofHash string `json:"proofHash"`
		Hash      string `json:"hash"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if obj.ProofHash != "" {
		return strings.TrimSpace(obj.ProofHash)
	}
	return strings.TrimSpace(obj.Hash)
}

// Receipt 为铸造或撤销的结果。
type Receipt struct {
	ConsentID string `json:"consentId"`
	TxRef     string `json:"txHash"`
}
