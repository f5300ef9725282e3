package crawler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierFIFO(t *testing.T) {
	f := NewFrontier()
	assert.True(t, f.IsEmpty())

	f.Push(Entry{URL: "http://example.com/1"})
	f.Push(Entry{URL: "http://example.com/2", Referrer: "http://example.com/1"})
	f.Push(Entry{URL: "http://example.com/1"})
	assert.Equal(t, 3, f.Size())

	e, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, "http://example.com/1", e.URL)

	e, ok = f.Pop()
	require.True(t, ok)
	assert.Equal(t, Entry{URL: "http://example.com/2", Referrer: "http://example.com/1"}, e)

	e, ok = f.Pop()
	require.True(t, ok)
	assert.Equal(t, "http://example.com/1", e.URL)

	_, ok = f.Pop()
	assert.False(t, ok)
	assert.True(t, f.IsEmpty())
}

func TestFrontierCompaction(t *testing.T) {
	f := NewFrontier()
	for i := 0; i < 3000; i++ {
		f.Push(Entry{URL: fmt.Sprintf("http://example.com/%d", i)})
	}

	for i := 0; i < 2000; i++ {
		e, ok := f.Pop()
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("http://example.com/%d", i), e.URL)
	}
	assert.Equal(t, 1000, f.Size())
	assert.Less(t, f.head, 1025)

	f.Push(Entry{URL: "http://example.com/last"})
	for i := 2000; i < 3000; i++ {
		e, ok := f.Pop()
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("http://example.com/%d", i), e.URL)
	}

	e, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, "http://example.com/last", e.URL)
	assert.True(t, f.IsEmpty())
}
