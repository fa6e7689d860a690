// Command events-consumer tails the congestion event stream and prints each
// event as structured JSON. It doubles as a reference consumer for building
// downstream integrations against the stream.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridpulse/gridpulse/internal/events"
)

func main() {
	addr := flag.String("redis", "127.0.0.1:6379", "redis address (host:port)")
	db := flag.Int("db", 0, "redis database number")
	stream := flag.String("stream", events.DefaultStream, "stream to consume")
	fromStart := flag.Bool("from-start", false, "replay the stream from the beginning instead of tailing")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: *addr, DB: *db})
	defer rdb.Close()

	lastID := "$"
	if *fromStart {
		lastID = "0"
	}

	slog.Info("consuming events", "stream", *stream, "redis", *addr, "from", lastID)

	for {
		res, err := rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{*stream, lastID},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()
		switch {
		case ctx.Err() != nil:
			slog.Info("events-consumer shutting down")
			return
		case errors.Is(err, redis.Nil):
			continue // block timed out with no new entries
		case err != nil:
			slog.Error("stream read failed — retrying", "err", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				lastID = msg.ID
				attrs := make([]any, 0, 2+2*len(msg.Values))
				attrs = append(attrs, "id", msg.ID)
				for k, v := range msg.Values {
					attrs = append(attrs, k, v)
				}
				slog.Info("event", attrs...)
			}
		}
	}
}
