package auth

import (
	"strconv"

	"github.com/pkg/errors"
)

func formatSubject(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid token subject")
	}
	return id, nil
}
