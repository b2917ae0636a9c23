// The sweeper runs the escalation sweep on a fixed interval. Deployments
// with a real cron can instead POST /escalations/run and skip this binary.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vaktsms/vaktsms-backend/internal/db"
	"github.com/vaktsms/vaktsms-backend/internal/queue"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
	"github.com/vaktsms/vaktsms-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	conn := db.MustOpen()

	var q queue.Queue = queue.NopQueue{}
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		amqpQueue, err := queue.DialAMQP(amqpURL)
		if err != nil {
			log.Fatalf("failed to connect to AMQP broker: %v", err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
	}

	escalationService := &service.EscalationService{
		GroupRepo:   &repository.GroupRepository{DB: conn},
		MessageRepo: &repository.MessageRepository{DB: conn},
		EventRepo:   &repository.EventRepository{DB: conn},
		Queue:       q,
	}

	interval := sweepInterval()
	log.Printf("sweeper running every %s", interval)

	// The sweep assumes invocations do not overlap; a single ticker loop
	// guarantees that within one process.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	runOnce(escalationService)
	for {
		select {
		case <-ticker.C:
			runOnce(escalationService)
		case sig := <-stop:
			log.Printf("received %s, shutting down", sig)
			return
		}
	}
}

func runOnce(s *service.EscalationService) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.Run(ctx)
	if err != nil {
		log.Printf("sweep failed: %v", err)
		return
	}
	if result.EscalatedCount > 0 {
		log.Printf("sweep escalated %d messages", result.EscalatedCount)
	}
}

func sweepInterval() time.Duration {
	minutes, err := strconv.Atoi(os.Getenv("SWEEP_INTERVAL_MINUTES"))
	if err != nil || minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}
