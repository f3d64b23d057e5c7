package schemas_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

// TestStructJSONTags verifies the json tags of the persisted types. The file
// store and the JSON reporter depend on them.
func TestStructJSONTags(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name         string
		structRef    interface{}
		expectedTags map[string]string
	}{
		{
			name:      "Issue",
			structRef: schemas.Issue{},
			expectedTags: map[string]string{
				"ID":          "id",
				"FileName":    "file_name",
				"LineStart":   "line_start",
				"LineEnd":     "line_end",
				"ColumnStart": "column_start",
				"ColumnEnd":   "column_end",
				"Severity":    "severity",
				"Category":    "category,omitempty",
				"Type":        "type,omitempty",
				"Message":     "message",
				"Description": "description,omitempty",
				"Fingerprint": "fingerprint",
				"Origin":      "origin",
				"Age":         "age,omitempty",
				"FirstSeen":   "first_seen,omitempty",
			},
		},
		{
			name:      "Fingerprint",
			structRef: schemas.Fingerprint{},
			expectedTags: map[string]string{
				"Value": "value",
				"Weak":  "weak,omitempty",
			},
		},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			structType := reflect.TypeOf(tt.structRef)
			actualTags := make(map[string]string)
			for i := 0; i < structType.NumField(); i++ {
				field := structType.Field(i)
				if jsonTag := field.Tag.Get("json"); jsonTag != "" {
					actualTags[field.Name] = jsonTag
				}
			}
			// Also catches fields missing from expectedTags.
			assert.Equal(t, tt.expectedTags, actualTags, "JSON tags for struct %s do not match expectations", tt.name)
		})
	}
}
