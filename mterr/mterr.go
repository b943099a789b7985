// Package mterr is the structured error taxonomy for the engine: every
// layer wraps what it returns in an *Error carrying a Stage and a stable
// Code, so callers can branch with errors.Is/errors.As instead of string
// matching, and background retry loops can tell permanent failures from
// transient ones.
package mterr

import (
	"fmt"
	"regexp"
	"strconv"
)

// Stage identifies which layer of the engine produced the error.
type Stage string

const (
	StageTransport Stage = "transport"
	StageHandshake Stage = "handshake"
	StageSession   Stage = "session"
	StageRPC       Stage = "rpc"
	StageUpdates   Stage = "updates"
)

// Code is a stable, programmatic error identifier.
type Code string

const (
	CodeTimeout             Code = "timeout"
	CodeCanceled            Code = "canceled"
	CodeConnRead            Code = "conn_read"
	CodeConnWrite           Code = "conn_write"
	CodeFrameTooLarge       Code = "frame_too_large"
	CodeFrameCRCMismatch    Code = "frame_crc_mismatch"
	CodeBadNonce            Code = "bad_nonce"
	CodeBadServerNonce      Code = "bad_server_nonce"
	CodeFactorizationFailed Code = "factorization_failed"
	CodeUnknownFingerprint  Code = "unknown_fingerprint"
	CodeDHPrimeInvalid      Code = "dh_prime_invalid"
	CodeDHGenRetryExhausted Code = "dh_gen_retry_exhausted"
	CodeDHGenFailed         Code = "dh_gen_failed"
	CodeAnswerHashMismatch  Code = "answer_hash_mismatch"
	CodeAuthKeyUnregistered Code = "auth_key_unregistered"
	CodeMsgIDTooOld         Code = "msg_id_too_old"
	CodeMsgIDTooNew         Code = "msg_id_too_new"
	CodeMsgIDParity         Code = "msg_id_parity"
	CodeSeqnoTooLow         Code = "seqno_too_low"
	CodeBadMsgSalt          Code = "bad_msg_salt"
	CodeRPCError            Code = "rpc_error"
	CodeMigrate             Code = "migrate"
	CodeFloodWait           Code = "flood_wait"
	CodeGapDetected         Code = "gap_detected"
	CodeDifferenceTooLong   Code = "difference_too_long"
)

// Error is a structured, programmatically identifiable engine error.
type Error struct {
	Stage Stage
	Code  Code
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Stage, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error, suitable for returning directly.
func Wrap(stage Stage, code Code, err error) error {
	return &Error{Stage: stage, Code: code, Err: err}
}

// SecurityError flags a handshake or session invariant violation that must
// abort the connection outright rather than retry — a forged or tampered
// server reply, not a transient condition.
type SecurityError struct {
	Code   Code
	Detail string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security violation (%s): %s", e.Code, e.Detail)
}

func NewSecurityError(code Code, detail string) error {
	return &SecurityError{Code: code, Detail: detail}
}

// TransportError wraps a framing or connection-level failure.
type TransportError struct {
	Code Code
	Err  error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport (%s): %v", e.Code, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(code Code, err error) error {
	return &TransportError{Code: code, Err: err}
}

// BadMsgError wraps a bad_msg_notification error_code with the textual
// meaning the session layer's recovery logic branches on.
type BadMsgError struct {
	ErrorCode int32
}

var badMsgMeanings = map[int32]string{
	16: "msg_id too low",
	17: "msg_id too high",
	18: "msg_id has incorrect parity",
	19: "container msg_id is the same as a previous container",
	20: "message too old, server already generated a response",
	32: "msg_seqno too low",
	33: "msg_seqno too high",
	34: "an even msg_seqno expected, got odd one",
	35: "an odd msg_seqno expected, got even one",
	48: "incorrect server salt",
	64: "invalid container",
}

func (e *BadMsgError) Error() string {
	if m, ok := badMsgMeanings[e.ErrorCode]; ok {
		return fmt.Sprintf("bad_msg_notification %d: %s", e.ErrorCode, m)
	}
	return fmt.Sprintf("bad_msg_notification %d", e.ErrorCode)
}

// Retriable reports whether the session can recover by resending the
// offending message with corrected seqno/salt, as opposed to needing a
// full session reset (new session_id, new msg_id sequence).
func (e *BadMsgError) Retriable() bool {
	switch e.ErrorCode {
	case 16, 17, 32, 33, 48:
		return true
	default:
		return false
	}
}

func NewBadMsgError(code int32) error { return &BadMsgError{ErrorCode: code} }

// RpcError wraps the rpc_error an RPC call received, splitting out the
// numeric code Telegram convention reuses as an HTTP-like status family.
type RpcError struct {
	Code    int32
	Message string
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func NewRpcError(code int32, message string) error {
	return &RpcError{Code: code, Message: message}
}

var migratePattern = regexp.MustCompile(`^(PHONE|NETWORK|USER|FILE)_MIGRATE_(\d+)$`)

var floodWaitPattern = regexp.MustCompile(`^FLOOD_WAIT_(\d+)$`)

// MigrateDC reports the data center an RpcError's message asks the client
// to move to, if it is one of the *_MIGRATE_<dc_id> family.
func (e *RpcError) MigrateDC() (int32, bool) {
	m := migratePattern.FindStringSubmatch(e.Message)
	if m == nil {
		return 0, false
	}
	dc, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return int32(dc), true
}

// FloodWaitSeconds reports how long a FLOOD_WAIT_<n> error asks the caller
// to back off before retrying the same request.
func (e *RpcError) FloodWaitSeconds() (int32, bool) {
	m := floodWaitPattern.FindStringSubmatch(e.Message)
	if m == nil {
		return 0, false
	}
	s, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return int32(s), true
}

// StopPropagation is a sentinel error for update-handler chains. Nothing in
// this module returns or checks it: updates.Dispatcher hands each update to
// a single Consumer, whose OnUpdate returns no error.
var StopPropagation = fmt.Errorf("mterr: stop propagation")
