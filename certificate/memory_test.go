package certificate

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	holder = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	agent  = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestMintAndOwnerOf(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Mint(ctx, holder, 0); err != nil {
		t.Fatal(err)
	}

	owner, err := m.OwnerOf(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if owner != holder {
		t.Errorf("owner: got %s, want %s", owner.Hex(), holder.Hex())
	}

	// Unminted streams have a zero owner.
	owner, _ = m.OwnerOf(ctx, 99)
	if owner != (common.Address{}) {
		t.Errorf("unminted stream owner should be zero, got %s", owner.Hex())
	}
}

func TestMintTwiceFails(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Mint(ctx, holder, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Mint(ctx, agent, 0); err == nil {
		t.Error("minting the same stream twice should fail")
	}
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Approve(ctx, 0, agent); err == nil {
		t.Error("approving an unminted stream should fail")
	}

	if err := m.Mint(ctx, holder, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Approve(ctx, 0, agent); err != nil {
		t.Fatal(err)
	}

	approved, err := m.Approved(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if approved != agent {
		t.Errorf("approved: got %s, want %s", approved.Hex(), agent.Hex())
	}
}

func TestTransferClearsApproval(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	next := common.HexToAddress("0x00000000000000000000000000000000000c0de")

	if err := m.Transfer(ctx, 0, next); err == nil {
		t.Error("transferring an unminted stream should fail")
	}

	if err := m.Mint(ctx, holder, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Approve(ctx, 0, agent); err != nil {
		t.Fatal(err)
	}
	if err := m.Transfer(ctx, 0, next); err != nil {
		t.Fatal(err)
	}

	owner, _ := m.OwnerOf(ctx, 0)
	if owner != next {
		t.Errorf("owner after transfer: got %s, want %s", owner.Hex(), next.Hex())
	}
	approved, _ := m.Approved(ctx, 0)
	if approved != (common.Address{}) {
		t.Error("transfer should clear the approval")
	}
}
