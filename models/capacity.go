package models

import (
	"fmt"
	"time"
)

// BucketKey is the exact tuple seats are counted against.
type BucketKey struct {
	TutorID         string
	ScheduledAt     time.Time
	DurationMinutes int
	SessionType     SessionKind
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%s", k.TutorID, k.ScheduledAt.UTC().Format(time.RFC3339), k.DurationMinutes, k.SessionType)
}

// CapacityBucket counts the seats reserved in one slot instance.
type CapacityBucket struct {
	Key             string      `bson:"key" json:"key"`
	TutorID         string      `bson:"tutorId" json:"tutorId"`
	ScheduledAt     time.Time   `bson:"scheduledAt" json:"scheduledAt"`
	DurationMinutes int         `bson:"durationMinutes" json:"durationMinutes"`
	SessionType     SessionKind `bson:"sessionType" json:"sessionType"`
	Capacity        int         `bson:"capacity" json:"capacity"`
	ReservedCount   int         `bson:"reservedCount" json:"reservedCount"`
	UpdatedAt       time.Time   `bson:"updatedAt" json:"updatedAt"`
}

func (b *CapacityBucket) Remaining() int {
	if b.ReservedCount >= b.Capacity {
		return 0
	}
	return b.Capacity - b.ReservedCount
}
