package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/delegation"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/metrics"
	sledgerstore "github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// compile-time interface check
var _ sledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("streamledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("streamledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Stream Store ====================

func (s *Store) CreateStream(ctx context.Context, st *stream.Stream) (uint64, error) {
	var id uint64
	err := s.pg.NewRaw(`SELECT nextval('streamledger_stream_ids')`).Scan(ctx, &id)
	if err != nil {
		return 0, err
	}

	m := toStreamModel(st)
	m.ID = id
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	m := new(streamModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", streamID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, streamledger.ErrUnexistingStream
		}
		return nil, err
	}
	return fromStreamModel(m)
}

func (s *Store) UpdateStream(ctx context.Context, st *stream.Stream) error {
	m := toStreamModel(st)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return streamledger.ErrUnexistingStream
	}
	return nil
}

func (s *Store) ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	var models []streamModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Sender != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("sender = $%d", argIdx), opts.Sender)
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*stream.Stream, len(models))
	for i := range models {
		st, err := fromStreamModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

func (s *Store) GetStreamMetrics(ctx context.Context, streamID uint64) (*stream.Metrics, error) {
	m := new(streamMetricsModel)
	err := s.pg.NewSelect(m).
		Where("stream_id = $1", streamID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return fromStreamMetricsModel(m)
}

func (s *Store) PutStreamMetrics(ctx context.Context, m *stream.Metrics) error {
	model := toStreamMetricsModel(m)
	_, err := s.pg.NewInsert(model).
		OnConflict("(stream_id) DO UPDATE").
		Set("withdrawal_count = EXCLUDED.withdrawal_count").
		Set("total_withdrawn = EXCLUDED.total_withdrawn").
		Set("delegation_count = EXCLUDED.delegation_count").
		Exec(ctx)
	return err
}

// ==================== Delegation Store ====================

func (s *Store) SetDelegate(ctx context.Context, streamID uint64, delegate common.Address) error {
	if delegate == (common.Address{}) {
		_, err := s.pg.NewDelete((*delegateModel)(nil)).
			Where("stream_id = $1", streamID).
			Exec(ctx)
		return err
	}

	m := &delegateModel{StreamID: streamID, Delegate: delegate.Hex()}
	_, err := s.pg.NewInsert(m).
		OnConflict("(stream_id) DO UPDATE").
		Set("delegate = EXCLUDED.delegate").
		Exec(ctx)
	return err
}

func (s *Store) GetDelegate(ctx context.Context, streamID uint64) (common.Address, error) {
	m := new(delegateModel)
	err := s.pg.NewSelect(m).
		Where("stream_id = $1", streamID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return common.Address{}, nil
		}
		return common.Address{}, err
	}
	return common.HexToAddress(m.Delegate), nil
}

func (s *Store) AppendGrant(ctx context.Context, g *delegation.Grant) error {
	m := toGrantModel(g)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) DelegationHistory(ctx context.Context, streamID uint64) ([]*delegation.Grant, error) {
	var models []grantModel
	err := s.pg.NewSelect(&models).
		Where("stream_id = $1", streamID).
		OrderExpr("granted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*delegation.Grant, len(models))
	for i := range models {
		g, err := fromGrantModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = g
	}
	return result, nil
}

// ==================== Metrics Store ====================

func (s *Store) GetProtocolMetrics(ctx context.Context) (*metrics.Protocol, error) {
	m := new(protocolMetricsModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", singletonRow).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return &metrics.Protocol{}, nil
		}
		return nil, err
	}
	return &metrics.Protocol{
		StreamsCreated: m.StreamsCreated,
		ActiveStreams:  m.ActiveStreams,
		Delegations:    m.Delegations,
		Withdrawals:    m.Withdrawals,
	}, nil
}

func (s *Store) PutProtocolMetrics(ctx context.Context, p *metrics.Protocol) error {
	m := &protocolMetricsModel{
		ID:             singletonRow,
		StreamsCreated: p.StreamsCreated,
		ActiveStreams:  p.ActiveStreams,
		Delegations:    p.Delegations,
		Withdrawals:    p.Withdrawals,
	}
	_, err := s.pg.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("streams_created = EXCLUDED.streams_created").
		Set("active_streams = EXCLUDED.active_streams").
		Set("delegations = EXCLUDED.delegations").
		Set("withdrawals = EXCLUDED.withdrawals").
		Exec(ctx)
	return err
}

func (s *Store) AddDistribution(ctx context.Context, token string, amount *uint256.Int) error {
	current, err := s.Distribution(ctx, token)
	if err != nil {
		return err
	}
	total := new(uint256.Int).Add(current, amount)
	_, err = s.pg.NewInsert(&distributionModel{Token: token, Total: types.AmountString(total)}).
		OnConflict("(token) DO UPDATE").
		Set("total = EXCLUDED.total").
		Exec(ctx)
	return err
}

func (s *Store) Distribution(ctx context.Context, token string) (*uint256.Int, error) {
	m := new(distributionModel)
	err := s.pg.NewSelect(m).
		Where("token = $1", token).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	return types.ParseAmount(m.Total)
}

// ==================== Fee Store ====================

func (s *Store) GetFeeConfig(ctx context.Context) (*fee.Config, error) {
	m := new(feeConfigModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", singletonRow).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return fromFeeConfigModel(m), nil
}

func (s *Store) PutFeeConfig(ctx context.Context, cfg *fee.Config) error {
	m := toFeeConfigModel(cfg)
	_, err := s.pg.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("bps = EXCLUDED.bps").
		Set("collector = EXCLUDED.collector").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) AccrueFees(ctx context.Context, token string, amount *uint256.Int) error {
	current, err := s.AccruedFees(ctx, token)
	if err != nil {
		return err
	}
	total := new(uint256.Int).Add(current, amount)
	_, err = s.pg.NewInsert(&accruedFeeModel{Token: token, Total: types.AmountString(total)}).
		OnConflict("(token) DO UPDATE").
		Set("total = EXCLUDED.total").
		Exec(ctx)
	return err
}

func (s *Store) AccruedFees(ctx context.Context, token string) (*uint256.Int, error) {
	m := new(accruedFeeModel)
	err := s.pg.NewSelect(m).
		Where("token = $1", token).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	return types.ParseAmount(m.Total)
}

func (s *Store) DeductFees(ctx context.Context, token string, amount *uint256.Int) error {
	current, err := s.AccruedFees(ctx, token)
	if err != nil {
		return err
	}
	if current.Lt(amount) {
		return streamledger.ErrExceedsAccruedFees
	}
	total := new(uint256.Int).Sub(current, amount)
	_, err = s.pg.NewInsert(&accruedFeeModel{Token: token, Total: types.AmountString(total)}).
		OnConflict("(token) DO UPDATE").
		Set("total = EXCLUDED.total").
		Exec(ctx)
	return err
}

// ==================== Event Store ====================

func (s *Store) AppendEvents(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}
	models := make([]eventModel, len(events))
	for i, ev := range events {
		models[i] = *toEventModel(ev)
	}
	_, err := s.pg.NewInsert(&models).Exec(ctx)
	return err
}

func (s *Store) ListEvents(ctx context.Context, streamID uint64, opts event.QueryOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.pg.NewSelect(&models).
		Where("stream_id = $1", streamID)

	argIdx := 1
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		ev, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = ev
	}
	return result, nil
}

// ==================== Helpers ====================

// singletonRow is the fixed primary key of one-row tables.
const singletonRow = 1

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
