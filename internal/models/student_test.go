package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2025-10-08"))
	assert.Equal(t, "2025-10-08", d.String())

	require.NoError(t, d.Scan([]byte("2024-02-29T00:00:00Z")))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan(time.Date(2025, 1, 2, 13, 4, 0, 0, time.UTC)))
	assert.Equal(t, "2025-01-02", d.String())

	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("not a date"))
}

func TestDateValueAndJSON(t *testing.T) {
	d, err := ParseDate("2025-10-08")
	require.NoError(t, err)

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-10-08", v)

	b, err := json.Marshal(AttendanceRecord{StudentID: 1, Date: d, Status: "present"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"date":"2025-10-08"`)

	var in AttendanceInput
	require.NoError(t, json.Unmarshal([]byte(`{"student_id":1,"date":"2024-03-05","status":"A"}`), &in))
	assert.Equal(t, time.March, in.Date.Month())
}

func TestAttendancePresent(t *testing.T) {
	for _, s := range []string{"present", "Present", "P", " p "} {
		assert.True(t, AttendanceRecord{Status: s}.Present(), s)
	}
	for _, s := range []string{"absent", "A", "leave", ""} {
		assert.False(t, AttendanceRecord{Status: s}.Present(), s)
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleParent.Valid())
	assert.True(t, RoleStudent.Valid())
	assert.False(t, Role("teacher").Valid())
}
