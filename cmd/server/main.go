package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/vaktsms/vaktsms-backend/internal/controller"
	"github.com/vaktsms/vaktsms-backend/internal/db"
	"github.com/vaktsms/vaktsms-backend/internal/handler"
	"github.com/vaktsms/vaktsms-backend/internal/queue"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
	"github.com/vaktsms/vaktsms-backend/internal/sender"
	"github.com/vaktsms/vaktsms-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	conn := db.MustOpen()

	gatewayRepo := &repository.GatewayRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	groupRepo := &repository.GroupRepository{DB: conn}
	ruleRepo := &repository.RoutingRuleRepository{DB: conn}
	threadRepo := &repository.ThreadRepository{DB: conn}
	messageRepo := &repository.MessageRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	eventRepo := &repository.EventRepository{DB: conn}

	var q queue.Queue
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		amqpQueue, err := queue.DialAMQP(amqpURL)
		if err != nil {
			log.Fatalf("failed to connect to AMQP broker: %v", err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
		log.Println("publishing notifications to AMQP broker")
	} else {
		memQueue := queue.NewInMemoryQueue()
		queue.StartEscalationLogSubscriber(memQueue)
		q = memQueue
	}

	smsSender := sender.NewHTTPSender(os.Getenv("SMS_GATEWAY_URL"), os.Getenv("SMS_GATEWAY_API_KEY"))

	routingService := &service.RoutingService{RuleRepo: ruleRepo}
	threadService := &service.ThreadService{
		ThreadRepo:  threadRepo,
		MessageRepo: messageRepo,
		Routing:     routingService,
	}
	bulkService := &service.BulkService{
		CampaignRepo: campaignRepo,
		GatewayRepo:  gatewayRepo,
		ContactRepo:  contactRepo,
		ThreadRepo:   threadRepo,
		MessageRepo:  messageRepo,
		Sender:       smsSender,
		SendDelay:    sendDelay(),
	}
	ingestService := &service.IngestService{
		GatewayRepo: gatewayRepo,
		ContactRepo: contactRepo,
		MessageRepo: messageRepo,
		Threads:     threadService,
		Bulk:        bulkService,
	}
	ackService := &service.AckService{MessageRepo: messageRepo, EventRepo: eventRepo}
	escalationService := &service.EscalationService{
		GroupRepo:   groupRepo,
		MessageRepo: messageRepo,
		EventRepo:   eventRepo,
		Queue:       q,
	}
	deliveryService := &service.DeliveryService{MessageRepo: messageRepo, EventRepo: eventRepo, Queue: q}

	messageController := &controller.MessageController{
		Ingest:   ingestService,
		Ack:      ackService,
		Delivery: deliveryService,
	}
	campaignController := &controller.CampaignController{Bulk: bulkService}
	escalationController := &controller.EscalationController{Escalation: escalationService}
	inboxHandler := &handler.InboxHandler{
		ThreadRepo:   threadRepo,
		MessageRepo:  messageRepo,
		CampaignRepo: campaignRepo,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
	}))

	r.Post("/messages/ingest", messageController.IngestMessage)
	r.Post("/messages/{id}/acknowledge", messageController.AcknowledgeMessage)
	r.Post("/webhooks/delivery", messageController.DeliveryWebhook)
	r.Post("/campaigns/{id}/send", campaignController.SendCampaign)
	r.Get("/campaigns/{id}", inboxHandler.GetCampaignHandler)
	r.Post("/escalations/run", escalationController.RunSweep)
	r.Get("/threads", inboxHandler.ListThreadsHandler)
	r.Get("/threads/{id}", inboxHandler.GetThreadHandler)

	addr := ":" + envOr("PORT", "8080")
	log.Printf("server running on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// sendDelay is the throttle between bulk sends, in milliseconds.
func sendDelay() time.Duration {
	ms, err := strconv.Atoi(envOr("BULK_SEND_DELAY_MS", "200"))
	if err != nil || ms < 0 {
		ms = 200
	}
	return time.Duration(ms) * time.Millisecond
}
