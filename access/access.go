// Package access defines the role-based access collaborator. The engine
// only decides which operations require which role; granting, revoking, and
// checking membership is delegated to this interface.
package access

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Role names a protocol capability.
type Role string

const (
	// RoleProtocolOwner may change the fee percentage, the fee collector,
	// and withdraw accrued protocol fees.
	RoleProtocolOwner Role = "protocol_owner"

	// RoleStreamAdmin may cancel streams. Granted to the sender of every
	// stream it creates.
	RoleStreamAdmin Role = "stream_admin"
)

// Controller is the grant/revoke/check surface of the access-control
// system.
type Controller interface {
	GrantRole(ctx context.Context, role Role, addr common.Address) error
	RevokeRole(ctx context.Context, role Role, addr common.Address) error
	HasRole(ctx context.Context, role Role, addr common.Address) (bool, error)
}
