// File: utils/constants.go
package utils

import "time"

// RevokedTokenPrefix is the prefix used for revoked token hashes in Redis.
const RevokedTokenPrefix = "revoked:"

// CalendarCachePrefix prefixes cached month resolutions.
const CalendarCachePrefix = "calendar:"

// SlotLockPrefix prefixes distributed slot locks.
const SlotLockPrefix = "lock:slot:"

// AccessTokenTTL is the lifetime of issued access tokens.
const AccessTokenTTL = 24 * time.Hour
