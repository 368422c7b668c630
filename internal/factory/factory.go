package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/favourolaoye/boride-v3-api/internal/bucketing"
	"github.com/favourolaoye/boride-v3-api/internal/client"
	"github.com/favourolaoye/boride-v3-api/internal/config"
	"github.com/favourolaoye/boride-v3-api/internal/encryption"
	"github.com/favourolaoye/boride-v3-api/internal/events"
	"github.com/favourolaoye/boride-v3-api/internal/hashing"
	"github.com/favourolaoye/boride-v3-api/internal/mailer"
	"github.com/favourolaoye/boride-v3-api/internal/otp"
	"github.com/favourolaoye/boride-v3-api/internal/repository"
	redisrepo "github.com/favourolaoye/boride-v3-api/internal/repository/redis"
	"github.com/favourolaoye/boride-v3-api/internal/repository/scylla"
	"github.com/favourolaoye/boride-v3-api/internal/service"
	"github.com/favourolaoye/boride-v3-api/internal/tls"
	"github.com/favourolaoye/boride-v3-api/internal/token"
	"github.com/favourolaoye/boride-v3-api/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.Manager
	bucketingManager  *bucketing.BucketingManager
	otpGenerator      *otp.Generator
	tokenIssuer       *token.Issuer
	mailSender        mailer.Sender
	dispatcher        *events.Dispatcher

	// Repositories
	studentRepository repository.StudentStore
	driverRepository  repository.DriverStore
	principalCache    *redisrepo.PrincipalCache

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
	}

	if cfg.Server.EnableTLS {
		factory.tlsManager = tls.NewTLSManager(&tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		})
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks.
// ScyllaDB is required; Redis, Kafka and ClickHouse are optional outside
// production and the services degrade without them.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// ScyllaDB
	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Redis
	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		util.Warn("Redis initialization failed - proceeding without cache", util.ErrorField(err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			util.Warn("Redis unhealthy - proceeding without cache", util.ErrorField(err))
			f.redisClient.Close()
			f.redisClient = nil
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// Kafka
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// ClickHouse
	if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		util.Warn("ClickHouse initialization failed - proceeding without audit sink", util.ErrorField(err))
	} else {
		f.clickhouseClient = chClient
		util.Info("ClickHouse client initialized and healthy")
	}

	if len(initErrors) > 0 {
		return fmt.Errorf("critical service initialization failed: %v", initErrors)
	}

	return nil
}

// initializeManagers initializes hashing, encryption, bucketing, OTP, token
// and mail components
func (f *Factory) initializeManagers() error {
	f.hasher = hashing.NewHasher()
	f.bucketingManager = bucketing.NewBucketingManager(f.config)
	f.otpGenerator = otp.NewGenerator(f.config.OTP.TTL)
	f.tokenIssuer = token.NewIssuer(f.config.JWT.Secret)
	f.mailSender = mailer.NewSMTPSender(f.config)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load AWS config for KMS: %w", err)
		}
		kmsClient = kms.NewFromConfig(awsCfg)
	}

	encryptionManager, err := encryption.NewManager(f.config, kmsClient)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}
	f.encryptionManager = encryptionManager

	var sinks []events.Sink
	if f.kafkaProducer != nil {
		sinks = append(sinks, events.NewKafkaSink(f.kafkaProducer))
	}
	if f.clickhouseClient != nil {
		sinks = append(sinks, events.NewClickHouseSink(f.clickhouseClient))
	}
	f.dispatcher = events.NewDispatcher(f.bucketingManager, sinks...)

	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) StudentRepository() repository.StudentStore {
	if f.studentRepository == nil {
		f.studentRepository = scylla.NewStudentRepository(
			f.scyllaClient,
			f.encryptionManager,
			f.bucketingManager,
		)
	}
	return f.studentRepository
}

func (f *Factory) DriverRepository() repository.DriverStore {
	if f.driverRepository == nil {
		f.driverRepository = scylla.NewDriverRepository(
			f.scyllaClient,
			f.encryptionManager,
			f.bucketingManager,
		)
	}
	return f.driverRepository
}

func (f *Factory) PrincipalCache() *redisrepo.PrincipalCache {
	if f.principalCache == nil && f.redisClient != nil {
		f.principalCache = redisrepo.NewPrincipalCache(f.redisClient, f.config.Redis.CacheTTL)
	}
	return f.principalCache
}

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(
			f.config,
			f.StudentRepository(),
			f.DriverRepository(),
			f.PrincipalCache(),
			f.hasher,
			f.otpGenerator,
			f.tokenIssuer,
			f.mailSender,
			f.dispatcher,
		)
	}
	return f.serviceFactory
}

// HealthCheck verifies the backing stores. Only the stores that were
// initialized are checked; a missing required store is an error.
func (f *Factory) HealthCheck(ctx context.Context) error {
	if f.scyllaClient == nil {
		return fmt.Errorf("scylla client not initialized")
	}
	if err := f.scyllaClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("scylla: %w", err)
	}
	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
	}
	return nil
}

// Close releases all client connections. Safe to call more than once.
func (f *Factory) Close() {
	f.closeOnce.Do(func() {
		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Warn("Failed to close Kafka producer", util.ErrorField(err))
			}
		}
		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Warn("Failed to close ClickHouse client", util.ErrorField(err))
			}
		}
		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Warn("Failed to close Redis client", util.ErrorField(err))
			}
		}
		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}
		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
		}
		util.Info("Factory closed")
	})
}
