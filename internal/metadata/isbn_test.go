package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractISBN(t *testing.T) {
	tests := []struct {
		name string
		stem string
		want string
	}{
		{"isbn13 with hyphens", "978-0-123456-78-9.epub", "9780123456789"},
		{"isbn10 with hyphens", "0-306-40615-2.pdf", "0306406152"},
		{"isbn10 with check digit X", "012345678X.mobi", "012345678X"},
		{"no digits at all", "foo_bar.epub", ""},
		{"digit run too short", "12345.epub", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractISBN(tt.stem))
		})
	}
}

func TestExtractISBN_LowercaseCheckDigit(t *testing.T) {
	// A lowercase trailing check digit is recognized the same as
	// uppercase, but the appended byte is always the canonical 'X'.
	assert.Equal(t, "012345678X", ExtractISBN("012345678x.mobi"))
}

func TestExtractISBN_StopsAtFirstValidRun(t *testing.T) {
	// The first digit run terminated by a non-separator character wins; a
	// second run later in the stem is never reached. "_" is itself a
	// separator and would extend rather than end the run, so the
	// terminator here is a letter.
	assert.Equal(t, "9780123456789", ExtractISBN("9780123456789a9999999999999.epub"))
}

func TestExtractISBN_SeparatorDoesNotResetRunAcrossGroups(t *testing.T) {
	// "_" is a skipped separator, not a terminator: a digit run spanning
	// one is a single run, not two, so a 13-then-13 split by "_" never
	// matches length 10 or 13 and yields no ISBN.
	assert.Equal(t, "", ExtractISBN("9780123456789_9999999999999.epub"))
}

func TestExtractISBN_XOnlyAcceptedAfterNineDigits(t *testing.T) {
	// A trailing X after fewer than nine digits is not a valid ISBN-10
	// check digit, so it terminates the run instead of extending it.
	assert.Equal(t, "", ExtractISBN("12345X.epub"))
}
