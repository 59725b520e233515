package handlers

import (
	"errors"
	"strconv"
)

var errMasterIDRequired = errors.New("masterId query param is required")

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
