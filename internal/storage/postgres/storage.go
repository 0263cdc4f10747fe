package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/model"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type withdrawalRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("withdrawal storage ready",
		slog.String("host", cfg.ConnConfig.Host),
		slog.String("database", cfg.ConnConfig.Database),
	)

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Withdrawals returns the withdrawal registry backed by this storage.
func (s *Storage) Withdrawals() repository.WithdrawalRepository {
	return &withdrawalRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
            fingerprint TEXT PRIMARY KEY,
            destination TEXT NOT NULL,
            amount BIGINT NOT NULL CHECK (amount > 0),
            l2_chain TEXT NOT NULL,
            server_l1_address TEXT NOT NULL,
            server_l2_address TEXT NOT NULL,
            server_fee BIGINT NOT NULL,
            state TEXT NOT NULL,
            failure_reason TEXT NOT NULL DEFAULT '',
            failure_detail TEXT NOT NULL DEFAULT '',
            l2_tx_id TEXT NOT NULL DEFAULT '',
            payout_tx_id TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            paid_at TIMESTAMPTZ,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_state ON withdrawal_requests(state, updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const selectColumns = `fingerprint, destination, amount, l2_chain, server_l1_address, server_l2_address, server_fee,
    state, failure_reason, failure_detail, l2_tx_id, payout_tx_id, created_at, paid_at, updated_at`

func scanRequest(row pgx.Row) (model.WithdrawalRequest, error) {
	var r model.WithdrawalRequest
	err := row.Scan(
		&r.Fingerprint, &r.Destination, &r.Amount, &r.L2Chain, &r.ServerL1Address, &r.ServerL2Address, &r.ServerFee,
		&r.State, &r.FailureReason, &r.FailureDetail, &r.L2TxID, &r.PayoutTxID, &r.CreatedAt, &r.PaidAt, &r.UpdatedAt,
	)
	return r, err
}

func (r *withdrawalRepository) Insert(ctx context.Context, req model.WithdrawalRequest) (string, error) {
	const query = `INSERT INTO withdrawal_requests (
            fingerprint, destination, amount, l2_chain, server_l1_address, server_l2_address, server_fee,
            state, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (fingerprint) DO NOTHING`

	fingerprint := model.ComputeFingerprint(req)
	updatedAt := req.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = req.CreatedAt
	}
	tag, err := r.storage.pool.Exec(ctx, query,
		fingerprint, req.Destination, req.Amount, req.L2Chain, req.ServerL1Address, req.ServerL2Address, req.ServerFee,
		model.WithdrawalStateCreated, req.CreatedAt, updatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert withdrawal request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", domainErrors.New(domainErrors.ErrDuplicateRequest, "Withdrawal request %s already exists", fingerprint)
	}
	return fingerprint, nil
}

func (r *withdrawalRepository) Lookup(ctx context.Context, fingerprint string) (model.WithdrawalRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM withdrawal_requests WHERE fingerprint=$1`
	req, err := scanRequest(r.storage.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.WithdrawalRequest{}, domainErrors.New(domainErrors.ErrNotFound, "Withdrawal request not found")
		}
		return model.WithdrawalRequest{}, fmt.Errorf("lookup withdrawal request: %w", err)
	}
	return req, nil
}

func (r *withdrawalRepository) Transition(ctx context.Context, fingerprint string, from, to model.WithdrawalState, update model.StateUpdate) (model.WithdrawalRequest, error) {
	const updateQuery = `UPDATE withdrawal_requests
        SET state=$2, failure_reason=$3, failure_detail=$4, l2_tx_id=$5, payout_tx_id=$6, paid_at=$7, updated_at=$8
        WHERE fingerprint=$1`
	selectQuery := `SELECT ` + selectColumns + ` FROM withdrawal_requests WHERE fingerprint=$1 FOR UPDATE`

	var result model.WithdrawalRequest
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		req, err := scanRequest(tx.QueryRow(ctx, selectQuery, fingerprint))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.New(domainErrors.ErrNotFound, "Withdrawal request not found")
			}
			return fmt.Errorf("lock withdrawal request: %w", err)
		}
		if req.State != from || !model.CanTransition(from, to) {
			return domainErrors.New(domainErrors.ErrInvalidTransition,
				"Withdrawal request is %s, expected %s", req.State, from)
		}
		if update.At.IsZero() {
			update.At = time.Now().UTC()
		}
		if !req.Apply(to, update) {
			return domainErrors.New(domainErrors.ErrInvalidTransition, "Incomplete update for %s", to)
		}
		if _, err := tx.Exec(ctx, updateQuery, fingerprint, req.State, req.FailureReason, req.FailureDetail,
			req.L2TxID, req.PayoutTxID, req.PaidAt, req.UpdatedAt); err != nil {
			return fmt.Errorf("update withdrawal request: %w", err)
		}
		result = req
		return nil
	})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	return result, nil
}

func (r *withdrawalRepository) ListByState(ctx context.Context, state model.WithdrawalState, reason model.FailureReason, limit int) ([]model.WithdrawalRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM withdrawal_requests
        WHERE state=$1 AND ($2::text = '' OR failure_reason = $2::text)
        ORDER BY updated_at, fingerprint LIMIT $3`

	rows, err := r.storage.pool.Query(ctx, query, state, reason, limit)
	if err != nil {
		return nil, fmt.Errorf("list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []model.WithdrawalRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawal requests: %w", err)
	}
	return requests, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && s.logger != nil {
				s.logger.Warn("transaction rollback failed", slog.String("error", rbErr.Error()))
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
