package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type TestStruct struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type dueRequest struct {
	DueDate string `json:"due_date" binding:"required,notpast"`
}

func init() {
	RegisterValidators(time.UTC, func() time.Time {
		return time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	})
}

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		key         string
		body        string
		expected    TestStruct
		expectError bool
	}{
		{
			name:     "Nested Structure",
			key:      "data",
			body:     `{"data": {"name": "Alice", "age": 30}}`,
			expected: TestStruct{Name: "Alice", Age: 30},
		},
		{
			name:     "Flat Structure",
			key:      "data",
			body:     `{"name": "Bob", "age": 25}`,
			expected: TestStruct{Name: "Bob", Age: 25},
		},
		{
			name:     "Nested Structure with Missing Key Fallback",
			key:      "data",
			body:     `{"other": "value", "name": "Charlie", "age": 40}`,
			expected: TestStruct{Name: "Charlie", Age: 40},
		},
		{
			name:        "Invalid JSON",
			key:         "data",
			body:        `{"name": "Eve", "age": "invalid"}`,
			expectError: true,
		},
		{
			name:        "Nested Key Present but Invalid Type",
			key:         "data",
			body:        `{"data": "some string"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result TestStruct
			err := BindNestedOrFlat(c, tt.key, &result)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestNotPastValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		body        string
		expectError bool
	}{
		{"today", `{"bill": {"due_date": "2025-03-01"}}`, false},
		{"future", `{"due_date": "2025-04-15"}`, false},
		{"yesterday", `{"due_date": "2025-02-28"}`, true},
		{"not a date", `{"due_date": "15/04/2025"}`, true},
		{"missing", `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))

			var req dueRequest
			err := BindNestedOrFlat(c, "bill", &req)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
