package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/clinicore/notify-engine/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notification_channels",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ChannelModel{}); err != nil {
					return err
				}
				indexes := []string{
					// Database-level backstop for channel exclusivity.
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_channels_active_type_scope ON notification_channels (channel_type, scope) WHERE is_active`,
					`CREATE INDEX IF NOT EXISTS idx_channels_type_scope ON notification_channels (channel_type, scope)`,
					`CREATE INDEX IF NOT EXISTS idx_channels_created_at ON notification_channels (created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ChannelModel{})
			},
		},
	})

	return m.Migrate()
}
