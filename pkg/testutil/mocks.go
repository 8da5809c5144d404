package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/taskflow/taskflow-backend/pkg/database"
	"github.com/taskflow/taskflow-backend/pkg/logger"
)

// MockDB wraps sqlmock for easier testing
type MockDB struct {
	DB   *database.DB
	Mock sqlmock.Sqlmock
}

// NewMockDB creates a new mock database for unit testing.
// Use this when you want to test repository logic without a real database.
//
// Usage:
//
//	mockDB := testutil.NewMockDB(t)
//	defer mockDB.Close()
//
//	mockDB.ExpectTenantQuery("tenant_acme", "SELECT ...", rows)
//
//	repo := repository.NewTaskRepository(mockDB.DB)
func NewMockDB(t *testing.T) *MockDB {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	return &MockDB{
		DB:   database.NewWithDB(db, NewLogger()),
		Mock: mock,
	}
}

// Close closes the mock database connection
func (m *MockDB) Close() error {
	return m.DB.Close()
}

// ExpectQuery sets up an expected query
func (m *MockDB) ExpectQuery(query string) *sqlmock.ExpectedQuery {
	return m.Mock.ExpectQuery(regexp.QuoteMeta(query))
}

// ExpectExec sets up an expected exec
func (m *MockDB) ExpectExec(query string) *sqlmock.ExpectedExec {
	return m.Mock.ExpectExec(regexp.QuoteMeta(query))
}

// ExpectationsWereMet verifies all expectations were met
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	if err := m.Mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// MockRows creates a new mock rows object
func MockRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

// ExpectTenantBegin sets up the transaction begin and search_path expectations
// that every tenant-scoped repository call issues. Follow with the query or
// exec expectations and then ExpectTenantCommit.
func (m *MockDB) ExpectTenantBegin(schema string) {
	m.Mock.ExpectBegin()
	m.Mock.ExpectExec(regexp.QuoteMeta("SET LOCAL search_path TO " + schema + ", public")).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

// ExpectTenantCommit sets up the transaction commit expectation
func (m *MockDB) ExpectTenantCommit() {
	m.Mock.ExpectCommit()
}

// ExpectTenantRollback sets up the transaction rollback expectation
func (m *MockDB) ExpectTenantRollback() {
	m.Mock.ExpectRollback()
}

// ExpectTenantQuery sets up expectations for a single tenant-scoped query.
// This handles the transaction + SET LOCAL search_path pattern.
func (m *MockDB) ExpectTenantQuery(schema, query string, rows *sqlmock.Rows) {
	m.ExpectTenantBegin(schema)
	m.Mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(rows)
	m.ExpectTenantCommit()
}

// ExpectTenantExec sets up expectations for a single tenant-scoped exec.
func (m *MockDB) ExpectTenantExec(schema, query string, result driver.Result) {
	m.ExpectTenantBegin(schema)
	m.Mock.ExpectExec(regexp.QuoteMeta(query)).WillReturnResult(result)
	m.ExpectTenantCommit()
}

// NewLogger returns a logger that discards all output. Used to satisfy
// constructors in unit tests.
func NewLogger() *logger.Logger {
	return &logger.Logger{Logger: zerolog.New(io.Discard)}
}

// AnyTime is a matcher for any time.Time value
type AnyTime struct{}

// Match satisfies the sqlmock.Argument interface
func (a AnyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

// AnyUUID is a matcher for any UUID string
type AnyUUID struct{}

// Match satisfies the sqlmock.Argument interface
func (a AnyUUID) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	// Simple UUID format check
	matched, _ := regexp.MatchString(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, s)
	return matched
}

// MockPublisher is a mock event publisher and job queue for testing
type MockPublisher struct {
	PublishedEvents []PublishedEvent
	EnqueuedJobs    []EnqueuedJob
}

// PublishedEvent represents an event that was published
type PublishedEvent struct {
	Type    string
	Payload interface{}
}

// EnqueuedJob represents a job that was enqueued
type EnqueuedJob struct {
	Type    string
	Payload interface{}
}

// NewMockPublisher creates a new mock publisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records an event for later verification
func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	m.PublishedEvents = append(m.PublishedEvents, PublishedEvent{
		Type:    eventType,
		Payload: payload,
	})
	return nil
}

// Enqueue records a job for later verification
func (m *MockPublisher) Enqueue(ctx context.Context, jobType string, payload interface{}) error {
	m.EnqueuedJobs = append(m.EnqueuedJobs, EnqueuedJob{
		Type:    jobType,
		Payload: payload,
	})
	return nil
}

// AssertEventPublished checks if an event of the given type was published
func (m *MockPublisher) AssertEventPublished(t *testing.T, eventType string) {
	t.Helper()
	for _, e := range m.PublishedEvents {
		if e.Type == eventType {
			return
		}
	}
	t.Errorf("expected event %q to be published, but it wasn't", eventType)
}

// AssertJobEnqueued checks if a job of the given type was enqueued and
// returns its payload.
func (m *MockPublisher) AssertJobEnqueued(t *testing.T, jobType string) interface{} {
	t.Helper()
	for _, j := range m.EnqueuedJobs {
		if j.Type == jobType {
			return j.Payload
		}
	}
	t.Errorf("expected job %q to be enqueued, but it wasn't", jobType)
	return nil
}

// JobsOfType returns all enqueued jobs of the given type
func (m *MockPublisher) JobsOfType(jobType string) []EnqueuedJob {
	var jobs []EnqueuedJob
	for _, j := range m.EnqueuedJobs {
		if j.Type == jobType {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// Reset clears all recorded events and jobs
func (m *MockPublisher) Reset() {
	m.PublishedEvents = nil
	m.EnqueuedJobs = nil
}
