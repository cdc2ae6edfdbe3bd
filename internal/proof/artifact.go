package proof

import (
	"strings"
	"time"

	"ProofBench/internal/benchmark"
	xerrors "ProofBench/internal/errors"
	"ProofBench/internal/ids"
)

// HashPrefix 标记一个字符串为证明凭证哈希。
const HashPrefix = "zk_proof_"

var (
	// ErrProofNotFound 表示哈希格式错误或存储中不存在。
	ErrProofNotFound = xerrors.New(xerrors.CodeProofNotFound, "Proof not found")
	// ErrHashConflict 表示插入的哈希已存在，调用方应重新生成。
	ErrHashConflict = xerrors.New(xerrors.CodeConflict, "proof hash already exists")
)

// Result 是单个指标的百分位结果。
type Result struct {
	Metric     string `json:"metric"`
	Percentile int    `json:"percentile"`
	SampleSize int    `json:"sampleSize"`
}

// Artifact 为一次基准提交生成的证明凭证，创建后不可修改。
type Artifact struct {
	Hash              string             `json:"proofHash"`
	SubjectID         string             `json:"companyId"`
	Results           []Result           `json:"results"`
	CreatedAt         time.Time          `json:"timestamp"`
	Verified          bool               `json:"verified"`
	Industry          benchmark.Industry `json:"industry,omitempty"`
	ReferenceIndustry benchmark.Industry `json:"referenceIndustry,omitempty"`
	Synthesized       bool               `json:"synthesized,omitempty"`
}

// Clone 返回深拷贝，存储实现依赖它避免共享切片。
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Results = append([]Result(nil), a.Results...)
	return &clone
}

// ValidHash 判断哈希是否符合 zk_proof_ 前缀约定。
func ValidHash(hash string) bool {
	if !strings.HasPrefix(hash, HashPrefix) {
		return false
	}
	rest := hash[len(HashPrefix):]
	if rest == "" {
		return false
	}
	for _, r := range rest {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// NewHash 由毫秒时间戳与 8 位随机串组成。
func NewHash(now time.Time) (string, error) {
	return ids.Timestamped(HashPrefix, now, 8)
}
