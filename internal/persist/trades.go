package persist

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ndrandal/matchbook/internal/engine"
)

// Trade is a persisted trade document.
type Trade struct {
	Symbol     string    `json:"symbol"     bson:"symbol"`
	MatchSeq   int64     `json:"matchSeq"   bson:"match_seq"`
	TakerID    int64     `json:"takerId"    bson:"taker_id"`
	MakerID    int64     `json:"makerId"    bson:"maker_id"`
	Price      float64   `json:"price"      bson:"price"`
	Qty        int64     `json:"qty"        bson:"qty"`
	TakerSide  string    `json:"takerSide"  bson:"taker_side"`
	ExecutedAt time.Time `json:"executedAt" bson:"executed_at"`
}

func tradeFromEvent(ev engine.TradeEvent) Trade {
	side := "SELL"
	if ev.Fill.TakerIsBuy {
		side = "BUY"
	}
	return Trade{
		Symbol:     ev.Symbol,
		MatchSeq:   int64(ev.Fill.MatchSeq),
		TakerID:    int64(ev.Fill.TakerID),
		MakerID:    int64(ev.Fill.MakerID),
		Price:      ev.Fill.Price.Float(),
		Qty:        int64(ev.Fill.Qty),
		TakerSide:  side,
		ExecutedAt: ev.At,
	}
}

// TradeWriter drains trade events into MongoDB on its own goroutine so the
// event pipeline's consumer never waits on the database. Enqueue drops when
// the buffer is full.
type TradeWriter struct {
	store   *Store
	ch      chan Trade
	dropped atomic.Uint64
}

// NewTradeWriter creates a trade writer with the given buffer size.
func NewTradeWriter(store *Store, buffer int) *TradeWriter {
	if buffer <= 0 {
		buffer = 4096
	}
	return &TradeWriter{
		store: store,
		ch:    make(chan Trade, buffer),
	}
}

// Enqueue accepts a trade event for persistence. Never blocks.
func (tw *TradeWriter) Enqueue(ev engine.TradeEvent) {
	select {
	case tw.ch <- tradeFromEvent(ev):
	default:
		tw.dropped.Add(1)
	}
}

// Dropped returns the number of trades discarded due to a full buffer.
func (tw *TradeWriter) Dropped() uint64 {
	return tw.dropped.Load()
}

// Run writes queued trades until ctx is cancelled.
func (tw *TradeWriter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := tw.dropped.Load(); n > 0 {
				log.Printf("trade writer: dropped %d trades under backpressure", n)
			}
			return
		case tr := <-tw.ch:
			if err := tw.save(tr); err != nil {
				log.Printf("trade writer: save match %d: %v", tr.MatchSeq, err)
			}
		}
	}
}

func (tw *TradeWriter) save(tr Trade) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := tw.store.db.Collection("trades").InsertOne(ctx, tr)
	return err
}

// TradeFilter controls which trades to return.
type TradeFilter struct {
	Symbol string
	Limit  int
	From   *time.Time
	To     *time.Time
}

// TradeStats holds aggregate trade statistics.
type TradeStats struct {
	TotalTrades int64 `json:"totalTrades"`
	TotalVolume int64 `json:"totalVolume"`
}

// TradeReader abstracts read-only trade queries for the REST API.
type TradeReader interface {
	QueryTrades(ctx context.Context, f TradeFilter) ([]Trade, error)
	QueryTradeStats(ctx context.Context) (TradeStats, error)
}

// MongoTradeReader implements TradeReader using a mongo.Database.
type MongoTradeReader struct {
	db *mongo.Database
}

// NewMongoTradeReader creates a new MongoTradeReader.
func NewMongoTradeReader(db *mongo.Database) *MongoTradeReader {
	return &MongoTradeReader{db: db}
}

// QueryTrades returns trades for a symbol, newest first.
func (r *MongoTradeReader) QueryTrades(ctx context.Context, f TradeFilter) ([]Trade, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}

	filter := bson.M{"symbol": f.Symbol}
	if f.From != nil || f.To != nil {
		timeFilter := bson.M{}
		if f.From != nil {
			timeFilter["$gte"] = *f.From
		}
		if f.To != nil {
			timeFilter["$lte"] = *f.To
		}
		filter["executed_at"] = timeFilter
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "executed_at", Value: -1}}).
		SetLimit(int64(f.Limit))

	cursor, err := r.db.Collection("trades").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer cursor.Close(ctx)

	trades := []Trade{}
	if err := cursor.All(ctx, &trades); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}
	return trades, nil
}

// QueryTradeStats returns whole-database trade aggregates.
func (r *MongoTradeReader) QueryTradeStats(ctx context.Context) (TradeStats, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalTrades", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalVolume", Value: bson.D{{Key: "$sum", Value: "$qty"}}},
		}}},
	}

	cursor, err := r.db.Collection("trades").Aggregate(ctx, pipeline)
	if err != nil {
		return TradeStats{}, fmt.Errorf("aggregate trades: %w", err)
	}
	defer cursor.Close(ctx)

	var results []TradeStats
	if err := cursor.All(ctx, &results); err != nil {
		return TradeStats{}, fmt.Errorf("decode stats: %w", err)
	}
	if len(results) == 0 {
		return TradeStats{}, nil
	}
	return results[0], nil
}
