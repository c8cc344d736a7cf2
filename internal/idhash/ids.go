// Package idhash computes deterministic record identifiers.
// All ids are hex-encoded SHA256 over pipe-joined key fields, so re-running
// the same decision or trade never produces a second row.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDecisionID computes a deterministic decision_id.
// Formula: SHA256(pool_id|mint|evaluated_at)
func ComputeDecisionID(poolID, mint string, evaluatedAt int64) string {
	return sum(fmt.Sprintf("%s|%s|%d", poolID, mint, evaluatedAt))
}

// ComputeTradeID computes a deterministic trade_id.
// Formula: SHA256(mint|side|requested_raw|created_at)
func ComputeTradeID(mint, side string, requestedRaw uint64, createdAt int64) string {
	return sum(fmt.Sprintf("%s|%s|%d|%d", mint, side, requestedRaw, createdAt))
}

// ComputePositionID computes a deterministic position_id.
// Formula: SHA256(mint|pool_id|opened_at)
func ComputePositionID(mint, poolID string, openedAt int64) string {
	return sum(fmt.Sprintf("%s|%s|%d", mint, poolID, openedAt))
}

func sum(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
