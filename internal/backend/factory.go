package backend

import (
	"context"
	"fmt"

	"bankdash/internal/amqp"
	"bankdash/internal/log"
	"bankdash/internal/services"
	"bankdash/internal/storage"
	"bankdash/internal/storage/memory"
	"bankdash/internal/storage/mongo"
	"bankdash/internal/storage/redis"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// extra options applied to every service the factory builds
	serviceOpts []services.Option
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger, opts ...services.Option) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger:      logger.WithComponent(log.ComponentBackend),
		serviceOpts: opts,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{services.WithLogger(f.logger)}
	if pub := f.openPublisher(config); pub != nil {
		opts = append(opts, services.WithPublisher(pub))
	}
	opts = append(opts, f.serviceOpts...)
	svc := services.NewBankService(store, opts...)

	f.logger.Info("Initialized backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", config.AMQPURL != "")

	return &BackendResult{
		Store:   store,
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (storage.KV, error) {
	switch config.Type {
	case MemoryBackend:
		return memory.New(), nil
	case SQLiteBackend:
		s, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return s, nil
	case RedisBackend:
		s, err := redis.New(ctx, redis.Config{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
			Prefix:   config.RedisPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
		}
		f.logger.Info("Opened Redis store", "addr", config.RedisAddr, "db", config.RedisDB)
		return s, nil
	case MongoBackend:
		s, err := mongo.Connect(ctx, mongo.Config{
			URI:        config.MongoURI,
			Database:   config.MongoDatabase,
			Collection: config.MongoCollection,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// openPublisher returns nil when AMQP is disabled or unreachable. Transfers
// keep working without events.
func (f *DefaultFactory) openPublisher(config Config) services.TransferPublisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without transfer events", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
