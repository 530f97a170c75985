package history

import (
	"context"
	"errors"
	"time"

	"Encore/model"

	"github.com/Strum355/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectBackoff  = time.Second
)

// PlayRecord is one item that started playing.
type PlayRecord struct {
	ID          uint   `gorm:"primaryKey"`
	GuildID     string `gorm:"index:idx_guild_played,priority:1;not null"`
	ChannelID   string `gorm:"not null"`
	RequesterID string `gorm:"index"`
	Title       string
	URL         string
	Duration    int64     // seconds, zero when unknown
	PlayedAt    time.Time `gorm:"index:idx_guild_played,priority:2"`
}

// Log stores play history in Postgres.
type Log struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to Postgres, waiting for it to come up, and migrates the schema.
func Open(ctx context.Context, dsn string) (*Log, error) {
	db, err := connect(ctx, func(ctx context.Context) (*gorm.DB, error) {
		return dial(ctx, postgres.Open(dsn))
	}, connectAttempts, connectBackoff)
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(&PlayRecord{}); err != nil {
		closeDB(db)
		return nil, err
	}
	return &Log{db: db, now: time.Now}, nil
}

// connect calls dial until it succeeds, up to attempts times, sleeping backoff
// between failures.
func connect(ctx context.Context, dial func(context.Context) (*gorm.DB, error), attempts int, backoff time.Duration) (*gorm.DB, error) {
	for attempt := 1; ; attempt++ {
		db, err := dial(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= attempts {
			return nil, err
		}
		log.WithFields(log.Fields{
			"attempt": attempt,
			"error":   err,
		}).Info("Waiting for Postgres to be ready...")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

type pingCloser interface {
	PingContext(ctx context.Context) error
	Close() error
}

// dial opens a pool and pings it. A pool that cannot be pinged is closed.
func dial(ctx context.Context, dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		if db != nil {
			closeDB(db)
		}
		return nil, err
	}

	pool, ok := db.ConnPool.(pingCloser)
	if !ok {
		return nil, errors.New("history: connection pool does not support ping")
	}
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if pool, ok := db.ConnPool.(pingCloser); ok {
		pool.Close()
	}
}

// Record implements orchestrator.Recorder. Failures are logged and otherwise
// ignored so playback never depends on the database.
func (l *Log) Record(ctx context.Context, guildID, channelID string, item *model.Item) {
	record := newPlayRecord(guildID, channelID, item, l.now())
	if err := l.db.WithContext(ctx).Create(record).Error; err != nil {
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"title":    item.Title,
			"error":    err,
		}).Warn("Failed to record play")
	}
}

// Close releases the connection pool.
func (l *Log) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newPlayRecord(guildID, channelID string, item *model.Item, at time.Time) *PlayRecord {
	return &PlayRecord{
		GuildID:     guildID,
		ChannelID:   channelID,
		RequesterID: item.RequesterID,
		Title:       item.Title,
		URL:         item.URL,
		Duration:    int64(item.Duration / time.Second),
		PlayedAt:    at.UTC(),
	}
}
