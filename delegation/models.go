// Package delegation stores the current withdrawal delegate per stream and
// the append-only history of every delegate ever granted.
package delegation

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/streamledger/id"
)

// Grant is one entry in a stream's delegation history. History is never
// pruned: revoking a delegation clears the current delegate but the grant
// record remains for audit.
type Grant struct {
	ID        id.GrantID     `json:"id"`
	StreamID  uint64         `json:"stream_id"`
	Delegate  common.Address `json:"delegate"`
	GrantedBy common.Address `json:"granted_by"`
	GrantedAt time.Time      `json:"granted_at"`
}
