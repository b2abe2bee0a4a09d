package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/internal/services/queue"
	"github.com/jwebster45206/adventure-engine/internal/storage"
	pkgqueue "github.com/jwebster45206/adventure-engine/pkg/queue"
)

func main() {
	redisURL := flag.String("redis", "redis://localhost:6379", "redis URL")
	session := flag.String("session", "00000000-0000-0000-0000-000000000001", "session id")
	turn := flag.Int("turn", 10, "turn the tasks were triggered by")
	flag.Parse()

	sessionID, err := uuid.Parse(*session)
	if err != nil {
		log.Fatal("Invalid session id:", err)
	}

	client, err := storage.NewRedisClient(*redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL:", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	fmt.Println("Connected to Redis successfully!")

	tasks := queue.NewTaskQueue(queue.NewClientFromRedis(client, slog.Default()))

	compress := pkgqueue.NewTask(pkgqueue.TaskCompress, sessionID, *turn)
	if err := tasks.Enqueue(ctx, compress); err != nil {
		log.Fatal("Failed to enqueue task:", err)
	}
	fmt.Printf("✅ Enqueued compress task: %s\n", compress.TaskID)

	env := pkgqueue.NewTask(pkgqueue.TaskEnvState, sessionID, *turn)
	env.Narrative = "A mysterious figure appears in the shadows."
	if err := tasks.Enqueue(ctx, env); err != nil {
		log.Fatal("Failed to enqueue task:", err)
	}
	fmt.Printf("✅ Enqueued envstate task: %s\n", env.TaskID)

	depth, err := tasks.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}

	fmt.Printf("\n📊 Queue depth: %d tasks\n", depth)
	fmt.Println("\n💡 Now start the worker to see it process these tasks!")
	fmt.Println("   Run: go run ./cmd/worker")
}
