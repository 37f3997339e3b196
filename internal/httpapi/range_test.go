package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testFileSize = int64(1000)

func TestParseRange_NoHeader(t *testing.T) {
	start, end, status, ok := parseRange("", testFileSize)
	assert.True(t, ok)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, testFileSize-1, end)
	assert.Equal(t, http.StatusOK, status)
}

func TestParseRange_Satisfiable(t *testing.T) {
	start, end, status, ok := parseRange("bytes=100-199", testFileSize)
	assert.True(t, ok)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, int64(199), end)
	assert.Equal(t, http.StatusPartialContent, status)
	assert.Equal(t, int64(100), end-start+1, "body length")
}

func TestParseRange_Unsatisfiable(t *testing.T) {
	_, _, _, ok := parseRange("bytes=2000-3000", testFileSize)
	assert.False(t, ok)
}

func TestParseRange_SuffixRange(t *testing.T) {
	start, end, status, ok := parseRange("bytes=-100", testFileSize)
	assert.True(t, ok)
	assert.Equal(t, testFileSize-100, start)
	assert.Equal(t, testFileSize-1, end)
	assert.Equal(t, http.StatusPartialContent, status)
}

func TestParseRange_SuffixLargerThanFile(t *testing.T) {
	start, end, _, ok := parseRange("bytes=-5000", testFileSize)
	assert.True(t, ok)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, testFileSize-1, end)
}

func TestParseRange_OpenEnded(t *testing.T) {
	start, end, status, ok := parseRange("bytes=500-", testFileSize)
	assert.True(t, ok)
	assert.Equal(t, int64(500), start)
	assert.Equal(t, testFileSize-1, end)
	assert.Equal(t, http.StatusPartialContent, status)
}

func TestParseRange_EndClampedToFileSize(t *testing.T) {
	start, end, _, ok := parseRange("bytes=100-999999", testFileSize)
	assert.True(t, ok)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, testFileSize-1, end)
}

func TestParseRange_StartBeyondFile(t *testing.T) {
	_, _, _, ok := parseRange("bytes=1000-1001", testFileSize)
	assert.False(t, ok)
}

func TestParseRange_MalformedHeader(t *testing.T) {
	for _, header := range []string{"bytes=", "items=0-10", "bytes=abc-10", "bytes=10-abc", "bytes=50-10"} {
		_, _, _, ok := parseRange(header, testFileSize)
		assert.False(t, ok, "header %q should be rejected", header)
	}
}

func TestParseRange_MultiRangeRejected(t *testing.T) {
	// Multi-range requests are not supported; the handler answers 416 Range
	// Not Satisfiable rather than serving a multipart/byteranges response.
	_, _, _, ok := parseRange("bytes=0-99,200-299", testFileSize)
	assert.False(t, ok)
}
