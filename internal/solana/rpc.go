// Package solana is a minimal Solana JSON-RPC client used to settle trades
// from on-chain state.
package solana

import "context"

// RPCClient defines the Solana RPC calls the service needs.
type RPCClient interface {
	// GetSignatureStatuses returns one entry per signature, in order.
	// A nil entry means the cluster does not know the signature.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}

// Commitment levels reported in SignatureStatus.ConfirmationStatus.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// SignatureStatus is the cluster's view of one transaction signature.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64 // nil once rooted
	Err                interface{}
	ConfirmationStatus string
}

// Failed reports whether the transaction landed with an error.
func (s *SignatureStatus) Failed() bool {
	return s.Err != nil
}

// Settled reports whether the transaction landed successfully at confirmed
// commitment or higher.
func (s *SignatureStatus) Settled() bool {
	if s.Failed() {
		return false
	}
	return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
}
