package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBookConfirm_SplitsOnFirstTwoColonsOnly(t *testing.T) {
	serviceID, startISO, err := parseBookConfirm("book_confirm:42:2026-03-05T14:20:00Z")

	assert.NoError(t, err)
	assert.Equal(t, int64(42), serviceID)
	assert.Equal(t, "2026-03-05T14:20:00Z", startISO)

	parsed, err := time.Parse(time.RFC3339, startISO)
	assert.NoError(t, err)
	assert.Equal(t, 2026, parsed.Year())
}

func TestParseBookConfirm_RejectsWrongPrefix(t *testing.T) {
	_, _, err := parseBookConfirm("svc:42")
	assert.Error(t, err)
}

func TestParseBookConfirm_RejectsMissingTimestamp(t *testing.T) {
	_, _, err := parseBookConfirm("book_confirm:42")
	assert.Error(t, err)
}

func TestParseBookConfirm_RejectsNonNumericServiceID(t *testing.T) {
	_, _, err := parseBookConfirm("book_confirm:abc:2026-03-05T14:20:00Z")
	assert.Error(t, err)
}

func TestParseSlot(t *testing.T) {
	got, err := parseSlot("slot:2026-03-05T14:20:00Z")
	assert.NoError(t, err)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, time.Month(3), got.Month())
}

func TestParseDay(t *testing.T) {
	got, err := parseDay("day:2026-03-05")
	assert.NoError(t, err)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, 5, got.Day())
}

func TestParseIDSuffix(t *testing.T) {
	id, ok := parseIDSuffix("apt_cancel:123", "apt_cancel:")
	assert.True(t, ok)
	assert.Equal(t, int64(123), id)

	_, ok = parseIDSuffix("apt_cancel:abc", "apt_cancel:")
	assert.False(t, ok)

	_, ok = parseIDSuffix("svc:123", "apt_cancel:")
	assert.False(t, ok)
}

func TestSplitPrefixed(t *testing.T) {
	rest, ok := splitPrefixed("svc:7", "svc:")
	assert.True(t, ok)
	assert.Equal(t, "7", rest)

	_, ok = splitPrefixed("day:7", "svc:")
	assert.False(t, ok)
}
