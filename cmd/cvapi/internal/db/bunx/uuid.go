package bunx

import "github.com/google/uuid"

// NewUUIDv7 returns a fresh primary key for users, roles and departments.
// v7 ids sort by creation time, so ordering by id matches insertion order on
// both dialects.
func NewUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Only fails when the system random source is broken.
		return uuid.NewString()
	}
	return id.String()
}
