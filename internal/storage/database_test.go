package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

// Unique index violations must arrive in the services as
// gorm.ErrDuplicatedKey; without TranslateError the postgres driver error
// passes through untranslated and the duplicate-offer check never fires.
func TestGormConfigTranslatesDriverErrors(t *testing.T) {
	cfg := gormConfig(logger.Default)
	assert.True(t, cfg.TranslateError)
	assert.Equal(t, logger.Default, cfg.Logger)
}
