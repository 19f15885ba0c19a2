package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog records the ledger entry produced for a client-supplied key.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "vault_id:user_id:operation:client_key"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client key to the vault, the caller and the operation.
func BuildIdempotencyKey(vaultID uuid.UUID, userID string, op TransactionType, clientKey string) string {
	return vaultID.String() + ":" + userID + ":" + string(op) + ":" + clientKey
}
