package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse("2022-03")
	require.NoError(t, err)
	assert.Equal(t, New(2022, time.March), m)
	assert.Equal(t, "2022-03", m.String())

	_, err = Parse("2022-13")
	assert.Error(t, err)
}

func TestMonth_Zero(t *testing.T) {
	var m Month
	assert.True(t, m.IsZero())
	assert.Equal(t, "", m.String())
}

func TestMonth_AddMonths(t *testing.T) {
	m := New(2022, time.December)
	assert.Equal(t, New(2023, time.January), m.AddMonths(1))
	assert.Equal(t, New(2021, time.December), m.AddMonths(-12))
}

func TestWindow(t *testing.T) {
	w, err := NewWindow("2022-01", "2024-12")
	require.NoError(t, err)

	assert.Len(t, w.Months(), 36)
	assert.True(t, w.Contains(New(2022, time.January)))
	assert.True(t, w.Contains(New(2024, time.December)))
	assert.False(t, w.Contains(New(2021, time.December)))
	assert.False(t, w.Contains(New(2025, time.January)))
	assert.False(t, w.Contains(Month{}))

	_, err = NewWindow("2024-01", "2023-01")
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	months := Range(New(2023, time.November), New(2024, time.February))
	require.Len(t, months, 4)
	assert.Equal(t, "2023-11", months[0].String())
	assert.Equal(t, "2024-02", months[3].String())

	assert.Nil(t, Range(New(2024, time.February), New(2023, time.November)))
}
