// Package jobstore records job phase transitions and outcomes.
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"storyreel/config"
	"storyreel/types"
)

// Recorder receives a snapshot of the job after every transition
type Recorder interface {
	Record(ctx context.Context, job *types.Job) error
}

// New builds the recorder chain for cfg: the state file always, postgres when enabled
func New(cfg config.DatabaseConfig) (Recorder, error) {
	recorders := MultiRecorder{LogRecorder{}}
	if cfg.Enabled {
		g, err := NewGormRecorder(cfg.DSN)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, g)
	}
	return recorders, nil
}

// JobRecord is the persisted shape of a job
type JobRecord struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	InputText   string `gorm:"type:text;not null"`
	SceneCount  int    `gorm:"not null"`
	Phase       string `gorm:"type:varchar(32);index;not null"`
	Status      string `gorm:"type:varchar(16);index;not null"`
	FailedPhase string `gorm:"type:varchar(32)"`
	Cause       string `gorm:"type:text"`
	Title       string
	Location    string `gorm:"type:text"`
	Duration    float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (JobRecord) TableName() string {
	return "story_jobs"
}

// RecordFromJob maps a job onto its row
func RecordFromJob(job *types.Job) JobRecord {
	rec := JobRecord{
		ID:          job.ID,
		InputText:   job.InputText,
		SceneCount:  job.SceneCount,
		Phase:       string(job.Phase),
		Status:      string(job.Status),
		FailedPhase: job.FailedPhase,
		Cause:       job.Cause,
		Title:       job.Title,
		Location:    job.Location,
		Duration:    job.Duration,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if !job.CompletedAt.IsZero() {
		t := job.CompletedAt
		rec.CompletedAt = &t
	}
	return rec
}

type GormRecorder struct {
	DB *gorm.DB
}

// NewGormRecorder connects to postgres and migrates the jobs table
func NewGormRecorder(dsn string) (*GormRecorder, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("database enabled but no dsn or DATABASE_URL set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)

	if err := db.AutoMigrate(&JobRecord{}); err != nil {
		return nil, fmt.Errorf("migrate story_jobs: %w", err)
	}
	log.Println("[jobstore] Database connected successfully")
	return &GormRecorder{DB: db}, nil
}

// Record upserts the job row keyed by id
func (r *GormRecorder) Record(ctx context.Context, job *types.Job) error {
	rec := RecordFromJob(job)
	if err := upsert(r.DB.WithContext(ctx), &rec).Error; err != nil {
		return fmt.Errorf("record job %s: %w", job.ID, err)
	}
	return nil
}

func upsert(db *gorm.DB, rec *JobRecord) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phase", "status", "failed_phase", "cause", "title", "location", "duration", "updated_at", "completed_at"}),
	}).Create(rec)
}

// LogRecorder writes pipeline_state.json into the job's working directory
type LogRecorder struct{}

func (LogRecorder) Record(_ context.Context, job *types.Job) error {
	log.Printf("[jobstore] job %s phase=%s status=%s", job.ID, job.Phase, job.Status)
	if job.WorkDir == "" {
		return nil
	}
	if _, err := os.Stat(job.WorkDir); err != nil {
		// reclaimed after success or never created
		return nil
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(job.WorkDir, "pipeline_state.json"), data, 0644)
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *types.Job) error { return nil }

// MultiRecorder fans a snapshot out to every recorder and joins their errors
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, job *types.Job) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
