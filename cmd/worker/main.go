package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"campustrack/internal/config"
	"campustrack/internal/hardware"
	"campustrack/internal/queue"
	"campustrack/internal/store"
)

// Worker drains accepted hardware scans from the queue into the flat CSV
// scan log that the monitor views read.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		// The in-memory queue lives inside the API process; a separate
		// worker has nothing to consume.
		log.Fatal("worker requires QUEUE_BACKEND=redis")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, will retry on consume", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, "")
	scanlog := hardware.NewScanLog(cfg.ScanLogPath)

	events, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for scans...")
	for ev := range events {
		entry := hardware.Entry{RegNo: ev.RegNo, Name: ev.Name, Status: ev.Status, Time: ev.Time}
		if err := scanlog.Append(entry); err != nil {
			log.Printf("scan log append failed for %s: %v", ev.RegNo, err)
			continue
		}
		log.Printf("logged scan %s (%s)", ev.RegNo, ev.Status)
	}

	log.Println("worker stopped")
}
