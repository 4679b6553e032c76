package boot

import (
	"apaeventus/src/config"
	"apaeventus/src/lib"
	awslib "apaeventus/src/lib/aws"
	"apaeventus/src/lib/mailer"
	"apaeventus/src/models"
	"apaeventus/src/repository"
	"apaeventus/src/services"
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Services struct {
	Store       *repository.GormStore
	Inventory   *services.InventoryService
	Sales       *services.SaleService
	Tickets     *services.TicketService
	Fulfillment *services.FulfillmentService
	Reconciler  *services.ReconcilerService
	Redemption  *services.RedemptionService
	RateLimiter *lib.RateLimiter
}

func InitDb(db *gorm.DB) *gorm.DB {
	err := db.AutoMigrate(
		&models.User{},
		&models.Ticket{},
		&models.CheckoutSession{},
		&models.Sale{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitServices wires the sale pipeline against its production backends.
func InitServices(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Services, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Printf("Unknown time zone %s, using UTC: %s\n", cfg.TimeZone, err.Error())
		loc = time.UTC
	}

	store := repository.NewGormStore(db)
	gateway := lib.NewStripeGateway(lib.GetStripeClient(), cfg.StripeWebhookSecret)

	s3Client, err := lib.AWSGetS3Client(ctx)
	if err != nil {
		return nil, err
	}
	storage := awslib.NewS3Storage(s3Client, cfg.S3Bucket, cfg.S3Region)

	mail, err := mailer.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher services.Publisher
	if cfg.SalesEventsQueue != "" {
		sqsClient, err := lib.AWSGetSQSClient(ctx)
		if err != nil {
			return nil, err
		}
		publisher = awslib.NewSQSPublisher(sqsClient, cfg.SalesEventsQueue)
	}

	var dedup services.EventDeduplicator
	var limiter *lib.RateLimiter
	if rdb := lib.GetRedisClient(); rdb != nil {
		pingRedis(ctx, rdb)
		dedup = lib.NewEventGuard(rdb, cfg.WebhookEventTTL)
		limiter = lib.NewRateLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	inventory := services.NewInventoryService(time.Now)
	sales := services.NewSaleService(store, inventory)
	fulfillment := services.NewFulfillmentService(
		store,
		lib.NewTicketRenderer(loc),
		storage,
		mail,
		services.FulfillmentOptions{
			Organization: cfg.Organization,
			EmailSubject: cfg.MailSubject,
			EmailBody:    cfg.MailBody,
		},
	)
	reconciler := services.NewReconcilerService(
		store,
		gateway,
		sales,
		inventory,
		fulfillment,
		publisher,
		dedup,
		services.CheckoutOptions{
			Currency:          cfg.Currency,
			DefaultSuccessURL: cfg.DefaultSuccessURL,
			DefaultCancelURL:  cfg.DefaultCancelURL,
		},
	)

	return &Services{
		Store:       store,
		Inventory:   inventory,
		Sales:       sales,
		Tickets:     services.NewTicketService(store, gateway, inventory, cfg.Currency),
		Fulfillment: fulfillment,
		Reconciler:  reconciler,
		Redemption:  services.NewRedemptionService(store),
		RateLimiter: limiter,
	}, nil
}

func pingRedis(ctx context.Context, rdb *redis.Client) {
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[redis] Ping failed: %s\n", err.Error())
	}
}
