package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/delegation"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/metrics"
	sledgerstore "github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// Collection name constants.
const (
	colStreams       = "streamledger_streams"
	colStreamMetrics = "streamledger_stream_metrics"
	colDelegates     = "streamledger_delegates"
	colGrants        = "streamledger_delegation_grants"
	colProtocol      = "streamledger_protocol_metrics"
	colDistributions = "streamledger_distributions"
	colFeeConfig     = "streamledger_fee_config"
	colAccruedFees   = "streamledger_accrued_fees"
	colEvents        = "streamledger_events"
	colCounters      = "streamledger_counters"
)

// counterStreamID is the counter document that hands out sequential stream
// IDs starting at zero.
const counterStreamID = "next_stream_id"

// singletonDoc is the fixed _id of one-document collections.
const singletonDoc = "singleton"

// compile-time interface check
var _ sledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all streamledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("streamledger/mongo: migrate %s indexes: %w", col, err)
		}
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
	id, err := s.nextStreamID(ctx)
	if err != nil {
		return 0, err
	}

	m := toStreamModel(st)
	m.ID = int64(id)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return 0, fmt.Errorf("streamledger/mongo: create stream: %w", err)
	}
	return id, nil
}

// nextStreamID atomically claims the next sequential stream id from the
// counter document.
func (s *Store) nextStreamID(ctx context.Context) (uint64, error) {
	res := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": counterStreamID},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var doc struct {
		Value int64 `bson:"value"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, fmt.Errorf("streamledger/mongo: next stream id: %w", err)
	}
	// The counter holds the post-increment value, so the claimed id is one
	// less and the first stream gets id zero.
	return uint64(doc.Value - 1), nil
}

func (s *Store) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	var m streamModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(streamID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, streamledger.ErrUnexistingStream
		}
		return nil, fmt.Errorf("streamledger/mongo: get stream: %w", err)
	}
	return fromStreamModel(&m)
}

func (s *Store) UpdateStream(ctx context.Context, st *stream.Stream) error {
	m := toStreamModel(st)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: update stream: %w", err)
	}
	if res.MatchedCount() == 0 {
		return streamledger.ErrUnexistingStream
	}
	return nil
}

func (s *Store) ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	var models []streamModel

	filter := bson.M{}
	if opts.Sender != "" {
		filter["sender"] = opts.Sender
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamledger/mongo: list streams: %w", err)
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
	var m streamMetricsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(streamID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("streamledger/mongo: get stream metrics: %w", err)
	}
	return fromStreamMetricsModel(&m)
}

func (s *Store) PutStreamMetrics(ctx context.Context, m *stream.Metrics) error {
	model := toStreamMetricsModel(m)
	_, err := s.mdb.NewUpdate(model).
		Filter(bson.M{"_id": model.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":              model.ID,
			"withdrawal_count": model.WithdrawalCount,
			"total_withdrawn":  model.TotalWithdrawn,
			"delegation_count": model.DelegationCount,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: put stream metrics: %w", err)
	}
	return nil
}

// ==================== Delegation Store ====================

func (s *Store) SetDelegate(ctx context.Context, streamID uint64, delegate common.Address) error {
	if delegate == (common.Address{}) {
		_, err := s.mdb.NewDelete((*delegateModel)(nil)).
			Filter(bson.M{"_id": int64(streamID)}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("streamledger/mongo: clear delegate: %w", err)
		}
		return nil
	}

	m := &delegateModel{ID: int64(streamID), Delegate: delegate.Hex()}
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":      m.ID,
			"delegate": m.Delegate,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: set delegate: %w", err)
	}
	return nil
}

func (s *Store) GetDelegate(ctx context.Context, streamID uint64) (common.Address, error) {
	var m delegateModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(streamID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return common.Address{}, nil
		}
		return common.Address{}, fmt.Errorf("streamledger/mongo: get delegate: %w", err)
	}
	return common.HexToAddress(m.Delegate), nil
}

func (s *Store) AppendGrant(ctx context.Context, g *delegation.Grant) error {
	m := toGrantModel(g)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("streamledger/mongo: append grant: %w", err)
	}
	return nil
}

func (s *Store) DelegationHistory(ctx context.Context, streamID uint64) ([]*delegation.Grant, error) {
	var models []grantModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"stream_id": int64(streamID)}).
		Sort(bson.D{{Key: "granted_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("streamledger/mongo: delegation history: %w", err)
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
	var m protocolMetricsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": singletonDoc}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return &metrics.Protocol{}, nil
		}
		return nil, fmt.Errorf("streamledger/mongo: get protocol metrics: %w", err)
	}
	return &metrics.Protocol{
		StreamsCreated: uint64(m.StreamsCreated),
		ActiveStreams:  uint64(m.ActiveStreams),
		Delegations:    uint64(m.Delegations),
		Withdrawals:    uint64(m.Withdrawals),
	}, nil
}

func (s *Store) PutProtocolMetrics(ctx context.Context, p *metrics.Protocol) error {
	m := &protocolMetricsModel{
		ID:             singletonDoc,
		StreamsCreated: int64(p.StreamsCreated),
		ActiveStreams:  int64(p.ActiveStreams),
		Delegations:    int64(p.Delegations),
		Withdrawals:    int64(p.Withdrawals),
	}
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":             m.ID,
			"streams_created": m.StreamsCreated,
			"active_streams":  m.ActiveStreams,
			"delegations":     m.Delegations,
			"withdrawals":     m.Withdrawals,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: put protocol metrics: %w", err)
	}
	return nil
}

func (s *Store) AddDistribution(ctx context.Context, token string, amount *uint256.Int) error {
	current, err := s.Distribution(ctx, token)
	if err != nil {
		return err
	}
	total := new(uint256.Int).Add(current, amount)
	return s.putTokenTotal(ctx, colDistributions, token, total)
}

func (s *Store) Distribution(ctx context.Context, token string) (*uint256.Int, error) {
	return s.getTokenTotal(ctx, colDistributions, token)
}

// ==================== Fee Store ====================

func (s *Store) GetFeeConfig(ctx context.Context) (*fee.Config, error) {
	var m feeConfigModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": singletonDoc}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("streamledger/mongo: get fee config: %w", err)
	}
	return fromFeeConfigModel(&m), nil
}

func (s *Store) PutFeeConfig(ctx context.Context, cfg *fee.Config) error {
	m := toFeeConfigModel(cfg)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.ID,
			"bps":        m.BPS,
			"collector":  m.Collector,
			"created_at": m.CreatedAt,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: put fee config: %w", err)
	}
	return nil
}

func (s *Store) AccrueFees(ctx context.Context, token string, amount *uint256.Int) error {
	current, err := s.AccruedFees(ctx, token)
	if err != nil {
		return err
	}
	total := new(uint256.Int).Add(current, amount)
	return s.putTokenTotal(ctx, colAccruedFees, token, total)
}

func (s *Store) AccruedFees(ctx context.Context, token string) (*uint256.Int, error) {
	return s.getTokenTotal(ctx, colAccruedFees, token)
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
	return s.putTokenTotal(ctx, colAccruedFees, token, total)
}

// ==================== Event Store ====================

func (s *Store) AppendEvents(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, ev := range events {
		m := toEventModel(ev)
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			// Skip duplicates so a retried flush stays idempotent
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("streamledger/mongo: append event: %w", err)
		}
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, streamID uint64, opts event.QueryOpts) ([]*event.Event, error) {
	var models []eventModel

	filter := bson.M{"stream_id": int64(streamID)}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamledger/mongo: list events: %w", err)
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

// getTokenTotal reads a per-token amount document from a totals collection.
func (s *Store) getTokenTotal(ctx context.Context, col, token string) (*uint256.Int, error) {
	res := s.mdb.Collection(col).FindOne(ctx, bson.M{"_id": token})

	var doc tokenTotalModel
	if err := res.Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return new(uint256.Int), nil
		}
		return nil, fmt.Errorf("streamledger/mongo: get %s total: %w", col, err)
	}
	return types.ParseAmount(doc.Total)
}

// putTokenTotal upserts a per-token amount document in a totals collection.
func (s *Store) putTokenTotal(ctx context.Context, col, token string, total *uint256.Int) error {
	_, err := s.mdb.Collection(col).UpdateOne(ctx,
		bson.M{"_id": token},
		bson.M{"$set": bson.M{"total": types.AmountString(total)}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: put %s total: %w", col, err)
	}
	return nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all streamledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colStreams: {
			{Keys: bson.D{{Key: "sender", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "token", Value: 1}}},
		},
		colGrants: {
			{Keys: bson.D{{Key: "stream_id", Value: 1}, {Key: "granted_at", Value: 1}}},
		},
		colEvents: {
			{Keys: bson.D{{Key: "stream_id", Value: 1}, {Key: "at", Value: 1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}}},
		},
	}
}
