package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"options-breakout-lab/internal/domain"
)

// ComputeLegID computes a deterministic leg_id from the leg key.
// Formula: SHA256(strategy|trade_date|expiry_date|strike|option_type|entry_round|leg_type)
// Returns hex-encoded hash (64 characters).
func ComputeLegID(key domain.LegKey) string {
	hash := sha256.Sum256([]byte(key.String()))
	return hex.EncodeToString(hash[:])
}

// ComputeLegBookID computes the leg_id of a LegBook entry. A double-buy leg
// shares its key with the stopped leg it replaced, so non-primary origins are
// folded into the hash. Primary entries keep ComputeLegID.
// Formula: SHA256(leg_key|origin)
func ComputeLegBookID(e *domain.LegBookEntry) string {
	if e.Origin == "" || e.Origin == domain.LegOriginPrimary {
		return ComputeLegID(e.LegKey)
	}
	hash := sha256.Sum256([]byte(e.LegKey.String() + "|" + string(e.Origin)))
	return hex.EncodeToString(hash[:])
}

// ComputeResultID computes a deterministic result_id for one ledger row.
// Legs sharing a key (a double-buy re-entry at a stopped strike) differ by
// entry time.
// Formula: SHA256(leg_key|transaction_type|entry_time_unix)
func ComputeResultID(key domain.LegKey, tx domain.TransactionType, entryTime time.Time) string {
	data := fmt.Sprintf("%s|%s|%d", key.String(), tx, entryTime.Unix())

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
