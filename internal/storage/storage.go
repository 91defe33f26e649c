package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grievancedesk/backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrStaleWrite = errors.New("record was modified concurrently")
	ErrDuplicate  = errors.New("duplicate record")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Storage is the full persistence surface. Services depend on narrower
// interfaces of their own; this one is used by the operator tooling.
type Storage interface {
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	ListStaff(ctx context.Context, departmentID uint) ([]models.User, error)

	CreateDepartment(ctx context.Context, d *models.Department) error
	GetDepartment(ctx context.Context, id uint) (*models.Department, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id uint) (*models.Category, error)

	CreateGrievance(ctx context.Context, g *models.Grievance, entry *models.TimelineEntry) error
	GetGrievance(ctx context.Context, id uint) (*models.Grievance, error)
	ApplyTransition(ctx context.Context, g *models.Grievance, expectedVersion int, entry *models.TimelineEntry) error
	ListGrievances(ctx context.Context, scope GrievanceScope) ([]models.Grievance, error)
	CountGrievancesByStatus(ctx context.Context, scope GrievanceScope) (map[models.Status]int64, error)

	ListTimeline(ctx context.Context, grievanceID uint) ([]models.TimelineEntry, error)
	LatestTimelineEntry(ctx context.Context, grievanceID uint) (*models.TimelineEntry, error)

	CreateRemark(ctx context.Context, r *models.Remark) error
	ListRemarks(ctx context.Context, grievanceID uint, studentView bool) ([]models.Remark, error)
	CountRemarks(ctx context.Context, grievanceID uint, studentView bool) (int64, error)
	LatestRemark(ctx context.Context, grievanceID uint, studentView bool) (*models.Remark, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uint) (int64, error)
	MarkNotificationRead(ctx context.Context, id uint, at time.Time) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	DeleteNotification(ctx context.Context, id uint) error
	PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	GetOrCreatePreference(ctx context.Context, userID uint) (*models.NotificationPreference, error)
	SavePreference(ctx context.Context, p *models.NotificationPreference) error

	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedbackByGrievance(ctx context.Context, grievanceID uint) ([]models.Feedback, error)
	ListFeedbackBySubmitter(ctx context.Context, userID uint) ([]models.Feedback, error)
	AverageRating(ctx context.Context, grievanceID uint) (*float64, error)

	ReplaceTelegramLinkCode(ctx context.Context, c *models.TelegramLinkCode) error
	ConsumeTelegramLinkCode(ctx context.Context, code string, now time.Time) (uint, error)
	GetUserByTelegramChat(ctx context.Context, chatID int64) (*models.User, error)

	PublishEvent(ctx context.Context, channel string, ev models.Event) error
}

var _ Storage = (*Service)(nil)

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Open connects to PostgreSQL.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// OpenRedis parses a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}
