// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package types

// Base intrinsic gas costs (spec §4.F step 3).
const (
	GasTxBase           = 21000
	GasPerZeroByte      = 4
	GasPerNonZeroByte   = 16
	GasContractCreation = 32000
)

// IntrinsicGas computes the fixed, data-dependent gas cost of a
// transaction before any execution: 21000 base, plus 4 or 16 gas per
// zero/non-zero data byte, plus 32000 if the transaction creates a
// contract (to == nil). Pure function of (data, isCreation) so both the
// mempool (drain-time capacity accounting) and the execution engine
// (authoritative gas accounting) can share one formula without coupling
// mempool to the execution package.
func IntrinsicGas(data []byte, isContractCreation bool) uint64 {
	gas := uint64(GasTxBase)
	for _, b := range data {
		if b == 0 {
			gas += GasPerZeroByte
		} else {
			gas += GasPerNonZeroByte
		}
	}
	if isContractCreation {
		gas += GasContractCreation
	}
	return gas
}

// TxIntrinsicGas is IntrinsicGas applied to a SignedTx, accounting for the
// legacy Transaction's To field (nil => creation) and treating the opaque
// ExecuteTx envelope as always non-creation (its gas is accounted
// entirely on L1).
func TxIntrinsicGas(tx SignedTx) uint64 {
	switch t := tx.(type) {
	case *Transaction:
		return IntrinsicGas(t.Data, t.To == nil)
	default:
		return GasTxBase
	}
}
