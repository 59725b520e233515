package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InboundUpdate is one chat-transport event handed to the controller —
// either a typed command (Text, e.g. "/start") or a callback-button press
// (CallbackData, one of the patterns in spec.md §6).
type InboundUpdate struct {
	ExternalUserID int64
	ChatID         int64
	Text           string
	CallbackData   string
}

// splitPrefixed splits "prefix:rest" into rest, reporting whether the
// update actually carried that prefix.
func splitPrefixed(data, prefix string) (string, bool) {
	if !strings.HasPrefix(data, prefix) {
		return "", false
	}
	return strings.TrimPrefix(data, prefix), true
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// parseBookConfirm splits "book_confirm:<service_id>:<ISO8601>" on the
// first two colons only — the ISO8601 timestamp itself contains colons,
// so a naive strings.Split would shatter it. Mirrors original_source/'s
// `parts = callback.data.split(":"); start_ts_iso = ":".join(parts[2:])`.
func parseBookConfirm(data string) (serviceID int64, startISO string, err error) {
	rest, ok := splitPrefixed(data, "book_confirm:")
	if !ok {
		return 0, "", fmt.Errorf("not a book_confirm callback: %q", data)
	}
	idx := strings.Index(rest, ":")
	if idx < 0 {
		return 0, "", fmt.Errorf("malformed book_confirm callback: %q", data)
	}
	serviceID, err = parseInt64(rest[:idx])
	if err != nil {
		return 0, "", fmt.Errorf("malformed book_confirm service id: %w", err)
	}
	return serviceID, rest[idx+1:], nil
}

func parseSlot(data string) (time.Time, error) {
	rest, ok := splitPrefixed(data, "slot:")
	if !ok {
		return time.Time{}, fmt.Errorf("not a slot callback: %q", data)
	}
	return time.Parse(time.RFC3339, rest)
}

func parseDay(data string) (time.Time, error) {
	rest, ok := splitPrefixed(data, "day:")
	if !ok {
		return time.Time{}, fmt.Errorf("not a day callback: %q", data)
	}
	return time.Parse("2006-01-02", rest)
}

func parseIDSuffix(data, prefix string) (int64, bool) {
	rest, ok := splitPrefixed(data, prefix)
	if !ok {
		return 0, false
	}
	id, err := parseInt64(rest)
	if err != nil {
		return 0, false
	}
	return id, true
}
