package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ProofBench/internal/consent"
)

const (
	insertConsentSQL = `INSERT INTO consent_records
    (consent_id, data_request_id, company_id, proof_hash, owner, valid, revoked, created_at, revoked_at, tx_ref)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectConsentSQL = `SELECT consent_id, data_request_id, company_id, proof_hash, owner, valid, revoked, created_at, revoked_at, tx_ref
    FROM consent_records WHERE consent_id = ?`
	selectConsentForUpdateSQL = selectConsentSQL + ` FOR UPDATE`
	updateConsentSQL          = `UPDATE consent_records SET valid = ?, revoked = ?, revoked_at = ?, tx_ref = ?
    WHERE consent_id = ?`
)

// ConsentStore 将同意书保存到 consent_records 表。
type ConsentStore struct {
	db *sql.DB
}

var _ consent.Store = (*ConsentStore)(nil)

// NewConsentStore 基于已迁移的连接池创建 ConsentStore。
func NewConsentStore(db *sql.DB) *ConsentStore {
	return &ConsentStore{db: db}
}

// Insert 实现 consent.Store 接口。
func (s *ConsentStore) Insert(ctx context.Context, record *consent.Record) error {
	if _, err := s.db.ExecContext(ctx, insertConsentSQL,
		record.ID,
		record.DataRequestID,
		record.CompanyID,
		record.ProofHash,
		record.Owner,
		record.Valid,
		record.Revoked,
		toMillis(record.CreatedAt),
		revokedAtValue(record),
		record.TxRef,
	); err != nil {
		if isDuplicateKey(err) {
			return consent.ErrConsentConflict
		}
		return fmt.Errorf("写入同意书失败: %w", err)
	}
	return nil
}

// Get 实现 consent.Store 接口。
func (s *ConsentStore) Get(ctx context.Context, id string) (*consent.Record, error) {
	return scanConsent(s.db.QueryRowContext(ctx, selectConsentSQL, id))
}

// Update 在事务中以 SELECT ... FOR UPDATE 锁定记录后执行 fn 并写回。
func (s *ConsentStore) Update(ctx context.Context, id string, fn func(*consent.Record) error) (*consent.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	record, err := scanConsent(tx.QueryRowContext(ctx, selectConsentForUpdateSQL, id))
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := fn(record); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, updateConsentSQL,
		record.Valid,
		record.Revoked,
		revokedAtValue(record),
		record.TxRef,
		record.ID,
	); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("更新同意书失败: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}
	return record, nil
}

// Close 关闭底层连接池。
func (s *ConsentStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanConsent(row *sql.Row) (*consent.Record, error) {
	var (
		record      consent.Record
		valid       int
		revoked     int
		createdAtMS int64
		revokedAtMS sql.NullInt64
	)
	if err := row.Scan(&record.ID, &record.DataRequestID, &record.CompanyID, &record.ProofHash, &record.Owner,
		&valid, &revoked, &createdAtMS, &revokedAtMS, &record.TxRef); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, consent.ErrConsentNotFound
		}
		return nil, fmt.Errorf("查询同意书失败: %w", err)
	}
	record.Valid = valid == 1
	record.Revoked = revoked == 1
	record.CreatedAt = fromMillis(createdAtMS)
	if revokedAtMS.Valid {
		at := fromMillis(revokedAtMS.Int64)
		record.RevokedAt = &at
	}
	return &record, nil
}

func revokedAtValue(record *consent.Record) sql.NullInt64 {
	if record.RevokedAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*record.RevokedAt), Valid: true}
}
