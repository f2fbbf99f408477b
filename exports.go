package streamledger

import "github.com/xraph/streamledger/types"

// Re-export common types for convenience so users don't have to import types package.

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export amount helpers
var (
	NewAmount    = types.NewAmount
	ZeroAmount   = types.ZeroAmount
	ParseAmount  = types.ParseAmount
	MustAmount   = types.MustAmount
	AmountString = types.AmountString
	FormatUnits  = types.FormatUnits
	ParseUnits   = types.ParseUnits
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
