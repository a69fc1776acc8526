package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/kassslll/learnhub/internal/config"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
)

const connectAttempts = 5

// Connect opens the postgres pool, retrying while the database starts up.
func Connect(cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), GormConfig())
		if err == nil {
			log.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)
			return db, nil
		}
		log.Warn("database connection attempt failed", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", connectAttempts, err)
}

// GormConfig is shared by production and tests. TranslateError turns driver
// unique violations into gorm.ErrDuplicatedKey.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Interest{},
		&models.Admin{},
		&models.Account{},
		&models.Course{},
		&models.Lesson{},
		&models.Review{},
		&models.CourseView{},
		&models.FavoriteCourse{},
		&models.Enrollment{},
		&models.EnrollmentLesson{},
		&models.CompletedCourse{},
		&models.Question{},
		&models.Answer{},
		&models.Banner{},
		&models.Contact{},
		&models.BlacklistedToken{},
	)
}
