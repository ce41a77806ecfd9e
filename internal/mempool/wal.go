// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package mempool

import (
	"bufio"
	"encoding/binary"
	"io"
	"math/big"
	"os"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

// WAL format (spec §4.D / §6): a sequence of length-prefixed records,
// [u32_be length][record bytes], fsynced on every insert. A short final
// record (truncated mid-write) is discarded on replay, never surfaced as
// an error — that is precisely the crash scenario the WAL exists to
// tolerate (spec §8 invariant 9).

const (
	recTypeLegacy = byte(0)
	recTypeExec   = byte(1)
)

type execWireForm struct {
	Payload []byte
	V, R, S *big.Int
}

// encodeRecord serializes tx into the WAL's tagged wire form: one type
// byte followed by the transaction's RLP encoding.
func encodeRecord(tx types.SignedTx) ([]byte, error) {
	switch t := tx.(type) {
	case *types.Transaction:
		body, err := types.EncodeToBytes(t)
		if err != nil {
			return nil, err
		}
		return append([]byte{recTypeLegacy}, body...), nil
	case *types.ExecuteTx:
		body, err := types.EncodeToBytes(execWireForm{Payload: t.Payload, V: t.V, R: t.R, S: t.S})
		if err != nil {
			return nil, err
		}
		return append([]byte{recTypeExec}, body...), nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

func decodeRecord(buf []byte) (types.SignedTx, error) {
	if len(buf) < 1 {
		return nil, io.ErrUnexpectedEOF
	}
	switch buf[0] {
	case recTypeLegacy:
		tx := new(types.Transaction)
		if err := types.DecodeBytes(buf[1:], tx); err != nil {
			return nil, err
		}
		return tx, nil
	case recTypeExec:
		var w execWireForm
		if err := types.DecodeBytes(buf[1:], &w); err != nil {
			return nil, err
		}
		return &types.ExecuteTx{Payload: w.Payload, V: w.V, R: w.R, S: w.S}, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

// WAL is a durable, append-only log of mempool inserts.
type WAL struct {
	path string
	f    *os.File
}

// OpenWAL opens (creating if absent) the WAL file at path for appending.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &WAL{path: path, f: f}, nil
}

// Append writes one record and fsyncs before returning, so a crash right
// after Append returns never loses the entry (spec §4.D: "fsynced on each
// insert"). The length prefix and the body are two separate writes; if
// either fails, the bytes already written stay in the file and the
// truncated final record is discarded on replay.
func (w *WAL) Append(tx types.SignedTx) error {
	body, err := encodeRecord(tx)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.f.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.f.Write(body); err != nil {
		return err
	}
	return w.f.Sync()
}

// Close closes the underlying file handle.
func (w *WAL) Close() error { return w.f.Close() }

// ReplayWAL reads every committed record from path, skipping a truncated
// final record if present (spec §6: "a short final record is discarded").
// It returns the records in file order, duplicates included — the caller
// (mempool startup) is responsible for deduping against its hash index.
func ReplayWAL(path string) ([]types.SignedTx, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var out []types.SignedTx
	for {
		var lenBuf [4]byte
		n, err := io.ReadFull(r, lenBuf[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF || n < 4 {
			break // truncated length prefix: discard
		}
		if err != nil {
			return out, err
		}
		recLen := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, recLen)
		n, err = io.ReadFull(r, body)
		if err != nil || uint32(n) != recLen {
			break // truncated body: discard per spec
		}
		tx, err := decodeRecord(body)
		if err != nil {
			break // corrupt record at the tail: discard rather than fail replay
		}
		out = append(out, tx)
	}
	return out, nil
}

// CompactWAL rewrites path to contain only the still-resident transactions
// in resident, replacing the file atomically via rename (spec §4.D:
// "after each successful batch submission, rewrite the WAL containing
// only still-resident entries").
func CompactWAL(path string, resident []types.SignedTx) error {
	tmp := path + ".compact"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, tx := range resident {
		body, err := encodeRecord(tx)
		if err != nil {
			f.Close()
			return err
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			f.Close()
			return err
		}
		if _, err := w.Write(body); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
