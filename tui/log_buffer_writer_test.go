package tui

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLogBufferWriterBasic ensures writes are buffered and returned in chronological
// order, and that limited reads return the newest entries.
func TestLogBufferWriterBasic(t *testing.T) {
	writer := NewLogBufferWriter(10)
	assert.EqualValues(t, 0, writer.Count())
	assert.Empty(t, writer.GetAllEntries())

	for i := 0; i < 3; i++ {
		message := fmt.Sprintf("line %d", i)
		n, err := writer.Write([]byte(message))
		assert.NoError(t, err)
		assert.EqualValues(t, len(message), n)
	}

	assert.EqualValues(t, 3, writer.Count())
	entries := writer.GetAllEntries()
	assert.Len(t, entries, 3)
	for i, entry := range entries {
		assert.EqualValues(t, fmt.Sprintf("line %d", i), entry.Message)
	}

	entries = writer.GetEntries(2)
	assert.Len(t, entries, 2)
	assert.EqualValues(t, "line 1", entries[0].Message)
	assert.EqualValues(t, "line 2", entries[1].Message)
}

// TestLogBufferWriterWrapAround ensures the oldest entries are overwritten once the
// buffer capacity is exceeded.
func TestLogBufferWriterWrapAround(t *testing.T) {
	writer := NewLogBufferWriter(4)
	for i := 0; i < 10; i++ {
		_, err := writer.Write([]byte(fmt.Sprintf("line %d", i)))
		assert.NoError(t, err)
	}

	assert.EqualValues(t, 4, writer.Count())
	entries := writer.GetAllEntries()
	assert.Len(t, entries, 4)
	for i, entry := range entries {
		assert.EqualValues(t, fmt.Sprintf("line %d", i+6), entry.Message)
	}

	entries = writer.GetEntries(2)
	assert.Len(t, entries, 2)
	assert.EqualValues(t, "line 8", entries[0].Message)
	assert.EqualValues(t, "line 9", entries[1].Message)
}

// TestLogBufferWriterClear ensures clearing resets the buffer and leaves it usable.
func TestLogBufferWriterClear(t *testing.T) {
	writer := NewLogBufferWriter(4)
	for i := 0; i < 6; i++ {
		_, err := writer.Write([]byte("entry"))
		assert.NoError(t, err)
	}

	writer.Clear()
	assert.EqualValues(t, 0, writer.Count())
	assert.Empty(t, writer.GetAllEntries())

	_, err := writer.Write([]byte("after clear"))
	assert.NoError(t, err)
	entries := writer.GetAllEntries()
	assert.Len(t, entries, 1)
	assert.EqualValues(t, "after clear", entries[0].Message)
}
