package id

import (
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// At generates a ULID for t drawing entropy from r. ULIDs sort by creation
// time and are safe for use as DynamoDB partition keys.
func At(t time.Time, r io.Reader) (string, error) {
	u, err := ulid.New(ulid.Timestamp(t), r)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
