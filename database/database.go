package database

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

type Database struct {
	db             *gorm.DB
	contestStore   *ContestStore
	userRepo       *UserRepo
	submissionRepo *SubmissionRepo
	paymentRepo    *PaymentRepo
	outboxRepo     *OutboxRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:             db,
		contestStore:   NewContestStore(db),
		userRepo:       NewUserRepo(db),
		submissionRepo: NewSubmissionRepo(db),
		paymentRepo:    NewPaymentRepo(db),
		outboxRepo:     NewOutboxRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) ContestStore() *ContestStore {
	return d.contestStore
}

func (d Database) UserRepo() *UserRepo {
	return d.userRepo
}

func (d Database) SubmissionRepo() *SubmissionRepo {
	return d.submissionRepo
}

func (d Database) PaymentRepo() *PaymentRepo {
	return d.paymentRepo
}

func (d Database) OutboxRepo() *OutboxRepo {
	return d.outboxRepo
}

// Ping checks that the primary answers.
func (d Database) Ping(ctx context.Context) error {
	var result int
	if err := d.db.WithContext(ctx).Clauses(dbresolver.Write).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return errs.NewDatabaseError("ping", "database", err)
	}
	return nil
}

// Migrate creates or updates every table.
func (d Database) Migrate() error {
	if err := d.db.AutoMigrate(models.All()...); err != nil {
		return errs.NewDatabaseError("migrate", "schema", err)
	}
	return nil
}

// Open connects to the primary at dsn and routes reads to replicas when any
// are given. Writes, and reads inside a transaction, always use the primary.
func Open(dsn string, replicas []string) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, errs.NewDatabaseError("connect to", "database", err)
	}

	if len(replicas) > 0 {
		dialectors := make([]gorm.Dialector, 0, len(replicas))
		for _, r := range replicas {
			dialectors = append(dialectors, postgres.New(postgres.Config{DSN: r, PreferSimpleProtocol: true}))
		}
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas:          dialectors,
			Policy:            dbresolver.RandomPolicy{},
			TraceResolverMode: true,
		}).
			SetConnMaxIdleTime(time.Hour).
			SetMaxIdleConns(10).
			SetMaxOpenConns(50))
		if err != nil {
			return nil, errs.NewDatabaseError("register replicas for", "database", err)
		}
	}

	// Enable required PostgreSQL extensions
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return nil, errs.NewDatabaseError("enable uuid-ossp on", "database", err)
	}

	return db, nil
}
