package search

import (
	"context"
	"sort"

	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

// Priority bucket numbers and names table. Lower bucket
// numbers are more urgent; ordering within a bucket is created_ts
// descending.
const (
	BucketAckOverdue   = 1
	BucketUrgent       = 2
	BucketAckRequired  = 3
	BucketHigh         = 4
	BucketUnread       = 5
	BucketReadUnacked  = 6
	BucketRead         = 7
)

var bucketNames = map[int]string{
	BucketAckOverdue:  "ack-overdue",
	BucketUrgent:      "urgent",
	BucketAckRequired: "ack-required",
	BucketHigh:        "high",
	BucketUnread:      "unread",
	BucketReadUnacked: "read-unacked",
	BucketRead:        "read",
}

// BucketOf computes the priority bucket for one inbox row given the
// current time and the configured ack SLA, following the decision table
// top to bottom (first match wins).
func BucketOf(row store.InboxRow, now int64, ackSLAMicros int64) int {
	acked := row.AckTS != nil
	read := row.ReadTS != nil
	urgentOrHigh := row.Message.Importance == types.ImportanceUrgent || row.Message.Importance == types.ImportanceHigh

	switch {
	case row.Message.AckRequired && !acked && row.Message.CreatedTS < now-ackSLAMicros:
		return BucketAckOverdue
	case urgentOrHigh && !read:
		return BucketUrgent
	case row.Message.AckRequired && !acked && !read:
		return BucketAckRequired
	case row.Message.Importance == types.ImportanceHigh && !read:
		return BucketHigh
	case !read:
		return BucketUnread
	case row.Message.AckRequired && !acked && read:
		return BucketReadUnacked
	default:
		return BucketRead
	}
}

// BucketName maps a bucket number to its display label.
func BucketName(bucket int) string {
	return bucketNames[bucket]
}

// FetchInbox synthesizes the priority-bucketed inbox for one agent,
// ordered (bucket ASC, created_ts DESC) — expressed in Go rather than a
// SQL CASE because the bucket computation depends on "now", which the
// caller controls for testability. The store fetch is always unbounded:
// limit governs only the final window taken after bucketing and sorting,
// never which rows the store returns, so an old ack-overdue message can
// never be pushed out of the candidate set by a flood of newer low-
// priority mail. limit<=0 means return every bucketed entry.
func (e *Engine) FetchInbox(ctx context.Context, projectID, agentID int64, now, ackSLAMicros int64, onlyBucket int, limit int) ([]types.InboxEntry, error) {
	rows, err := e.store.FetchInboxRows(ctx, projectID, agentID, -1)
	if err != nil {
		return nil, err
	}

	entries := make([]types.InboxEntry, 0, len(rows))
	for _, row := range rows {
		bucket := BucketOf(row, now, ackSLAMicros)
		if onlyBucket != 0 && bucket != onlyBucket {
			continue
		}
		ackStatus := "none"
		if row.Message.AckRequired {
			if row.AckTS != nil {
				ackStatus = "acked"
			} else {
				ackStatus = "required"
			}
		}
		entries = append(entries, types.InboxEntry{
			Message:   row.Message,
			From:      row.FromName,
			Bucket:    bucket,
			Priority:  BucketName(bucket),
			AckStatus: ackStatus,
			Read:      row.ReadTS != nil,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Bucket != entries[j].Bucket {
			return entries[i].Bucket < entries[j].Bucket
		}
		return entries[i].Message.CreatedTS > entries[j].Message.CreatedTS
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
