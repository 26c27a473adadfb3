package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RateLimitKey(userID uuid.UUID) string {
	return fmt.Sprintf("ratelimit:%s", userID)
}
