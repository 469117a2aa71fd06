package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, logLevel("debug"))
	assert.Equal(t, gormlogger.Error, logLevel("error"))
	assert.Equal(t, gormlogger.Warn, logLevel("info"))
	assert.Equal(t, gormlogger.Warn, logLevel(""))
}
