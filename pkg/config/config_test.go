package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("task-service")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "taskflow", cfg.Database.Database)
	assert.Equal(t, 10, cfg.RabbitMQ.PrefetchCount)
	assert.Equal(t, 3, cfg.RabbitMQ.MaxJobAttempts)
	assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
}

func TestLoadWorkerPort(t *testing.T) {
	cfg, err := Load("analytics-worker")
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TASKFLOW_SERVER_PORT", "9999")
	t.Setenv("TASKFLOW_DATABASE_HOST", "db.internal")
	t.Setenv("TASKFLOW_SCHEDULER_DAILY_PRODUCTIVITY", "0 22 * * *")

	cfg, err := Load("task-service")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "0 22 * * *", cfg.Scheduler.DailyProductivity)
}

func TestLoadWithValidationRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("TASKFLOW_SERVER_ENVIRONMENT", "production")
	t.Setenv("TASKFLOW_DATABASE_URL", "postgres://u:p@db.prod:5432/taskflow")
	t.Setenv("TASKFLOW_RABBITMQ_URL", "amqp://u:p@mq.prod:5672/")

	_, err := LoadWithValidation("task-service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TASKFLOW_JWT_SECRET")
}

func TestLoadWithValidationRejectsLocalhostDatabaseInProduction(t *testing.T) {
	t.Setenv("TASKFLOW_SERVER_ENVIRONMENT", "production")

	_, err := LoadWithValidation("task-service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration error")
}

func TestLoadWithValidationAcceptsProductionConfig(t *testing.T) {
	t.Setenv("TASKFLOW_SERVER_ENVIRONMENT", "production")
	t.Setenv("TASKFLOW_DATABASE_URL", "postgres://u:p@db.prod:5432/taskflow")
	t.Setenv("TASKFLOW_RABBITMQ_URL", "amqp://u:p@mq.prod:5672/")
	t.Setenv("TASKFLOW_JWT_SECRET", "a-real-production-secret")

	cfg, err := LoadWithValidation("task-service")
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Server.Environment)
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("TASKFLOW_SERVER_ENVIRONMENT", "Production")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProductionLike())
	assert.False(t, IsDevelopment())
}
