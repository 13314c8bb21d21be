package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/envutil"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := envutil.Str("POSTGRES_HOST", "localhost")
	postgresPort := envutil.Str("POSTGRES_PORT", "5432")
	postgresUser := envutil.Str("POSTGRES_USER", "postgres")
	postgresPassword := envutil.Str("POSTGRES_PASSWORD", "")
	postgresName := envutil.Str("POSTGRES_NAME", "recall")
	sslMode := envutil.Str("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, sslMode)

	serviceLog.Info("Connecting to Postgres...", "host", postgresHost, "db", postgresName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&domain.Session{},
		&domain.Message{},
		&domain.SessionSummary{},
		&domain.Memory{},
		&domain.JobRun{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	fks := []struct {
		name string
		ddl  string
	}{
		{
			name: "fk_message_session_id",
			ddl: `ALTER TABLE "message"
				ADD CONSTRAINT "fk_message_session_id"
				FOREIGN KEY ("session_id")
				REFERENCES "session"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_session_summary_session_id",
			ddl: `ALTER TABLE "session_summary"
				ADD CONSTRAINT "fk_session_summary_session_id"
				FOREIGN KEY ("session_id")
				REFERENCES "session"("id")
				ON DELETE CASCADE`,
		},
	}
	for _, fk := range fks {
		drop := fmt.Sprintf(`ALTER TABLE ONLY %q DROP CONSTRAINT IF EXISTS %q`, tableForConstraint(fk.name), fk.name)
		if err := s.db.Exec(drop).Error; err != nil {
			return fmt.Errorf("failed to reset %s: %w", fk.name, err)
		}
		if err := s.db.Exec(fk.ddl).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}
	return nil
}

func tableForConstraint(name string) string {
	switch name {
	case "fk_message_session_id":
		return "message"
	case "fk_session_summary_session_id":
		return "session_summary"
	default:
		return ""
	}
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

// Ping verifies connectivity for the health endpoint.
func (s *PostgresService) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
