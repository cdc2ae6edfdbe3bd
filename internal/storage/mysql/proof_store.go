package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ProofBench/internal/benchmark"
	"ProofBench/internal/proof"
)

const (
	insertProofSQL = `INSERT INTO proof_artifacts
    (proof_hash, company_id, industry, reference_industry, results, verified, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?)`
	selectProofSQL = `SELECT proof_hash, company_id, industry, reference_industry, results, verified, created_at
    FROM proof_artifacts WHERE proof_hash = ?`
)

// ProofStore 将证明凭证写入 proof_artifacts 表，写入后不再修改。
type ProofStore struct {
	db *sql.DB
}

var _ proof.Store = (*ProofStore)(nil)

// NewProofStore 基于已迁移的连接池创建 ProofStore。
func NewProofStore(db *sql.DB) *ProofStore {
	return &ProofStore{db: db}
}

// Insert 实现 proof.Store 接口，主键冲突时返回 proof.ErrHashConflict。
func (s *ProofStore) Insert(ctx context.Context, artifact *proof.Artifact) error {
	results, err := json.Marshal(artifact.Results)
	if err != nil {
		return fmt.Errorf("序列化证明结果失败: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, insertProofSQL,
		artifact.Hash,
		artifact.SubjectID,
		string(artifact.Industry),
		string(artifact.ReferenceIndustry),
		string(results),
		artifact.Verified,
		toMillis(artifact.CreatedAt),
	); err != nil {
		if isDuplicateKey(err) {
			return proof.ErrHashConflict
		}
		return fmt.Errorf("写入证明凭证失败: %w", err)
	}
	return nil
}

// Get 实现 proof.Store 接口。
func (s *ProofStore) Get(ctx context.Context, hash string) (*proof.Artifact, error) {
	row := s.db.QueryRowContext(ctx, selectProofSQL, hash)
	var (
		artifact    proof.Artifact
		industry    string
		reference   string
		results     string
		verified    int
		createdAtMS int64
	)
	if err := row.Scan(&artifact.Hash, &artifact.SubjectID, &industry, &reference, &results, &verified, &createdAtMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, proof.ErrProofNotFound
		}
		return nil, fmt.Errorf("查询证明凭证失败: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &artifact.Results); err != nil {
		return nil, fmt.Errorf("解析证明结果失败: %w", err)
	}
	artifact.Industry = benchmark.Industry(industry)
	artifact.ReferenceIndustry = benchmark.Industry(reference)
	artifact.Verified = verified == 1
	artifact.CreatedAt = fromMillis(createdAtMS)
	return &artifact, nil
}

// Close 关闭底层连接池。
func (s *ProofStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
