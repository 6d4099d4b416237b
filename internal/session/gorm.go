package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"waypoint/internal/config"
	"waypoint/internal/email"
	"waypoint/internal/llm"
)

// checkpointRecord is the table layout; structured fields are stored as JSON text.
type checkpointRecord struct {
	SessionID    string `gorm:"primaryKey"`
	Domain       string `gorm:"index;not null"`
	State        string `gorm:"index;not null"`
	ConfigJSON   string `gorm:"type:text"`
	SystemPrompt string `gorm:"type:text"`
	MessagesJSON string `gorm:"type:text"`
	Result       string `gorm:"type:text"`
	Turns        int
	ToolCalls    int
	Error        string `gorm:"type:text"`
	EmailJSON    string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (checkpointRecord) TableName() string { return "checkpoints" }

// GormStore keeps checkpoints in SQLite or PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) a SQLite database at path.
func NewSQLiteStore(path string) (*GormStore, error) {
	return openGorm(sqlite.Open(path), "SQLite")
}

// NewPostgresStore opens (and migrates) a PostgreSQL database.
func NewPostgresStore(dsn string) (*GormStore, error) {
	return openGorm(postgres.Open(dsn), "PostgreSQL")
}

func openGorm(dialector gorm.Dialector, name string) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", name, err)
	}
	if err := db.AutoMigrate(&checkpointRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, cp *Checkpoint) error {
	if cp == nil || cp.SessionID == "" {
		return fmt.Errorf("checkpoint must have a session id")
	}
	rec, err := toRecord(cp)
	if err != nil {
		return err
	}

	if rec.CreatedAt.IsZero() {
		var prev checkpointRecord
		err := s.db.WithContext(ctx).Select("created_at").First(&prev, "session_id = ?", cp.SessionID).Error
		switch {
		case err == nil:
			rec.CreatedAt = prev.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec.CreatedAt = time.Now()
		default:
			return fmt.Errorf("failed to load checkpoint %s: %w", cp.SessionID, err)
		}
	}
	rec.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", cp.SessionID, err)
	}
	return nil
}

func (s *GormStore) Load(ctx context.Context, sessionID string) (*Checkpoint, error) {
	var rec checkpointRecord
	err := s.db.WithContext(ctx).First(&rec, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", sessionID, err)
	}
	return fromRecord(&rec)
}

func (s *GormStore) Delete(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Delete(&checkpointRecord{}, "session_id = ?", sessionID).Error
}

func (s *GormStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&checkpointRecord{}).Order("session_id ASC").Pluck("session_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(cp *Checkpoint) (*checkpointRecord, error) {
	cfg, err := json.Marshal(cp.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	msgs, err := json.Marshal(cp.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}
	rec := &checkpointRecord{
		SessionID:    cp.SessionID,
		Domain:       cp.Domain,
		State:        string(cp.State),
		ConfigJSON:   string(cfg),
		SystemPrompt: cp.SystemPrompt,
		MessagesJSON: string(msgs),
		Result:       cp.Result,
		Turns:        cp.Turns,
		ToolCalls:    cp.ToolCalls,
		Error:        cp.Error,
		CreatedAt:    cp.CreatedAt,
	}
	if cp.Email != nil {
		b, err := json.Marshal(cp.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal email receipt: %w", err)
		}
		rec.EmailJSON = string(b)
	}
	return rec, nil
}

func fromRecord(rec *checkpointRecord) (*Checkpoint, error) {
	cp := &Checkpoint{
		SessionID:    rec.SessionID,
		Domain:       rec.Domain,
		State:        State(rec.State),
		SystemPrompt: rec.SystemPrompt,
		Result:       rec.Result,
		Turns:        rec.Turns,
		ToolCalls:    rec.ToolCalls,
		Error:        rec.Error,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	var cfg config.AgentConfig
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cp.Config = cfg

	var msgs []llm.Message
	if err := json.Unmarshal([]byte(rec.MessagesJSON), &msgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	cp.Messages = msgs

	if rec.EmailJSON != "" {
		var r email.Receipt
		if err := json.Unmarshal([]byte(rec.EmailJSON), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal email receipt: %w", err)
		}
		cp.Email = &r
	}
	return cp, nil
}
