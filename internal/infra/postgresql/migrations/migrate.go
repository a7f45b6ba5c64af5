package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/sai-roshan-dev/practo-cms-backend/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.UserModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.UserModel{})
			},
		},
		{
			ID: "000002_create_notifications",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NotificationModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications (user_id, created_at DESC)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NotificationModel{})
			},
		},
		{
			ID: "000003_create_queued_jobs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.QueuedJobModel{}); err != nil {
					return err
				}
				indexes := []string{
					// Dispatch scan: waiting/stalled rows whose next run is due.
					`CREATE INDEX IF NOT EXISTS idx_queued_jobs_state_next_run ON queued_jobs (state, next_run_at)`,
					// Stall scan and terminal pruning both walk updated_at within a state.
					`CREATE INDEX IF NOT EXISTS idx_queued_jobs_state_updated ON queued_jobs (state, updated_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.QueuedJobModel{})
			},
		},
	})

	return m.Migrate()
}
