package message

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"notechat/internal/database"
)

func TestMongoLog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	uri := os.Getenv("NOTECHAT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("NOTECHAT_TEST_MONGO_URI not set")
	}

	req := require.New(t)
	ctx := context.Background()

	cfg := database.DefaultMongoConfig()
	cfg.URI = uri
	cfg.Database = "notechat_test_" + uuid.NewString()[:8]
	db, err := database.NewMongoDB(ctx, cfg, logs.GetLoggerFromLevel(slog.LevelError))
	req.NoError(err)
	req.NoError(db.CreateIndexes(ctx))
	t.Cleanup(func() {
		_ = db.Collection(database.MessagesCollection).Database().Drop(ctx)
		_ = db.Close(ctx)
	})

	log := NewMongoLog(db, 5*time.Second)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := range 4 {
		req.NoError(log.Append(ctx, &Message{
			ID:        fmt.Sprint("m", i),
			NoteID:    "n1",
			Sender:    "u1",
			Message:   fmt.Sprint("body ", i),
			Timestamp: start.Add(time.Duration(i) * time.Second),
		}))
	}

	history, err := log.History(ctx, "n1", 3)
	req.NoError(err)
	req.Equal([]string{"m1", "m2", "m3"}, ids(history))

	req.Error(log.Append(ctx, &Message{ID: "m0", NoteID: "n1", Sender: "u1", Message: "dup"}), "message ids are unique")
}
