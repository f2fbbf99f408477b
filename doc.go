// Package streamledger provides a token payment-streaming ledger for Go
// applications.
//
// StreamLedger is designed as a library, not a service. Import it directly
// into your Go application for maximum performance and flexibility. It
// provides:
//
//   - Linear token streaming with per-second fixed-point rates
//   - Pause, restart, cancel, and void lifecycle control per stream
//   - Delegated withdrawal rights with a full grant history
//   - Basis-points protocol fees with per-token accrual accounting
//   - Protocol and per-stream metrics
//   - An append-only domain event log with batched background flushing
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/streamledger"
//	    "github.com/xraph/streamledger/access"
//	    "github.com/xraph/streamledger/certificate"
//	    "github.com/xraph/streamledger/store/memory"
//	    "github.com/xraph/streamledger/token"
//	)
//
//	eng := streamledger.New(memory.New(),
//	    token.NewMemory(), certificate.NewMemory(), access.NewMemory())
//
//	// Start the engine (migrates the store, begins background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// A stream commits a sender to release a total amount of one token to a
// recipient linearly between a start and an end time:
//
//	id, err := eng.CreateStream(ctx, streamledger.CreateStreamParams{
//	    Sender:      sender,
//	    Recipient:   recipient,
//	    Token:       usdc,
//	    TotalAmount: types.MustAmount("1000000000"),
//	    StartTime:   now,
//	    EndTime:     now + 30*24*3600,
//	    Cancelable:  true,
//	})
//
// The recipient (or a delegate they appoint) withdraws whatever has
// streamed so far, minus the protocol fee:
//
//	res, err := eng.Withdraw(ctx, recipient, id, recipient, amount)
//
// Stream ownership is an ERC-721 style certificate: transferring the
// certificate transfers the right to withdraw.
//
// # Amounts
//
// All token amounts are 256-bit unsigned integers (holiman/uint256) in the
// token's smallest unit. Streaming rates are fixed-point with eighteen
// scaling decimals, so a stream of 1000 units over 100 seconds carries a
// rate of 10 * 10^18. All arithmetic is integer-only.
//
// # Integration
//
// StreamLedger integrates with the Forgery ecosystem:
//
//   - Forge: application lifecycle via the extension package
//   - Grove: PostgreSQL, SQLite, and MongoDB store backends
//   - Chronicle: audit trail via the audit_hook package
//
// # TypeID
//
// Streams use dense sequential uint64 ids starting at zero. Delegation
// grants and domain events use TypeID for globally unique, type-safe
// identifiers:
//
//	grant_01h2xcejqtf2nbrexx3vqjhp41  // Delegation grant ID
//	evt_01h455vb4pex5vsknk084sn02q    // Event ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package streamledger
