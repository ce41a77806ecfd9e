// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package apperr defines the sequencer's closed error taxonomy (spec §7)
// as errors.Is-comparable sentinel values, so every layer — mempool,
// execution, ingress, RPC — maps failures to the same vocabulary without
// string matching.
package apperr

import "errors"

// Kind is one of the ten error categories spec §7 enumerates.
type Kind int

const (
	KindDecode Kind = iota
	KindInvalidSignature
	KindBadNonce
	KindInsufficientFunds
	KindCapacity
	KindDuplicate
	KindGasLimitExceeded
	KindStorage
	KindL1Unreachable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "Decode"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindBadNonce:
		return "BadNonce"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindCapacity:
		return "Capacity"
	case KindDuplicate:
		return "Duplicate"
	case KindGasLimitExceeded:
		return "GasLimitExceeded"
	case KindStorage:
		return "Storage"
	case KindL1Unreachable:
		return "L1Unreachable"
	default:
		return "Internal"
	}
}

// Error is a taxonomy-tagged error: Kind drives JSON-RPC code mapping
// (§7), the wrapped error carries the human-readable detail.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err under kind. Use the package-level sentinels below for the
// common zero-detail cases.
func New(kind Kind, err error) *Error { return &Error{Kind: kind, Err: err} }

// Sentinel instances for errors.Is comparisons against a bare kind, e.g.
// errors.Is(err, apperr.Duplicate).
var (
	Decode             = &Error{Kind: KindDecode}
	InvalidSignature   = &Error{Kind: KindInvalidSignature}
	BadNonce           = &Error{Kind: KindBadNonce}
	InsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	Capacity           = &Error{Kind: KindCapacity}
	Duplicate          = &Error{Kind: KindDuplicate}
	GasLimitExceeded   = &Error{Kind: KindGasLimitExceeded}
	Storage            = &Error{Kind: KindStorage}
	L1Unreachable      = &Error{Kind: KindL1Unreachable}
	Internal           = &Error{Kind: KindInternal}
)

// Is implements errors.Is matching by Kind alone, so wrapped instances
// (New(KindDuplicate, detailErr)) compare equal to the bare sentinel.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// Of returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
