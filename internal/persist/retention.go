package persist

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// retentionInterval is how often the pruner wakes up.
const retentionInterval = 1 * time.Hour

// RunRetention periodically deletes trades older than the retention period.
// Blocks until ctx is cancelled. Pass retentionDays <= 0 to disable.
func RunRetention(ctx context.Context, store *Store, retentionDays int) {
	if retentionDays <= 0 {
		log.Println("trade retention disabled (keep forever)")
		return
	}

	log.Printf("trade retention: pruning trades older than %d days every %v",
		retentionDays, retentionInterval)

	// Run once immediately on startup, then on the ticker.
	runPrune(ctx, store, retentionDays)

	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runPrune(ctx, store, retentionDays)
		}
	}
}

func runPrune(ctx context.Context, store *Store, retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := PruneTrades(ctx, store, cutoff)
	if err != nil {
		log.Printf("trade retention prune error: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("trade retention: pruned %d trades older than %s",
			deleted, cutoff.Format(time.DateOnly))
	}
}

// PruneTrades deletes all trades executed before cutoff and returns how
// many were removed.
func PruneTrades(ctx context.Context, store *Store, cutoff time.Time) (int64, error) {
	result, err := store.db.Collection("trades").DeleteMany(ctx, bson.M{
		"executed_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
