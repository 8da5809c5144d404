package consumers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskflow/taskflow-backend/internal/task/repository"
)

func TestApplyUserFieldsMergesNames(t *testing.T) {
	emp := &repository.Employee{FullName: "Ada Byron", Email: "ada@example.com"}

	applyUserFields(emp, map[string]any{"last_name": "Lovelace"})
	assert.Equal(t, "Ada Lovelace", emp.FullName)

	applyUserFields(emp, map[string]any{"first_name": "Augusta"})
	assert.Equal(t, "Augusta Lovelace", emp.FullName)
}

func TestApplyUserFieldsDepartment(t *testing.T) {
	dept := "Engineering"
	emp := &repository.Employee{Department: &dept}

	applyUserFields(emp, map[string]any{"department": ""})
	assert.Nil(t, emp.Department)

	applyUserFields(emp, map[string]any{"department": "Support"})
	if assert.NotNil(t, emp.Department) {
		assert.Equal(t, "Support", *emp.Department)
	}
}

func TestApplyUserFieldsIgnoresUnknownAndNonString(t *testing.T) {
	emp := &repository.Employee{Email: "ada@example.com", IsActive: true}

	applyUserFields(emp, map[string]any{
		"email":     42,
		"shoe_size": "11",
		"is_active": false,
	})

	assert.Equal(t, "ada@example.com", emp.Email)
	assert.False(t, emp.IsActive)
}
