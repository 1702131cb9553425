// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

package airtable

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/staranto/vcardctl/internal/resource"
)

// Sentinel errors for configuration problems. These are never retryable.
var (
	ErrMissingToken    = errors.New("airtable token is not set")
	ErrMissingBase     = errors.New("airtable base id is not set")
	ErrUnknownResource = errors.New("unknown resource")
)

// StatusClass buckets a failed call by what the caller can do about it.
type StatusClass int

const (
	// ClassNetwork means no response was received (dial, timeout, reset).
	ClassNetwork StatusClass = iota
	// ClassClient is a 4xx response. Retrying will not help.
	ClassClient
	// ClassServer is a 5xx response or a response body that could not be
	// decoded.
	ClassServer
)

func (c StatusClass) String() string {
	switch c {
	case ClassClient:
		return "client"
	case ClassServer:
		return "server"
	default:
		return "network"
	}
}

// TransportError is returned by every Client call that fails on the wire.
type TransportError struct {
	Op         string
	Resource   resource.Key
	StatusCode int
	// Type and Message come from the Airtable error envelope when present.
	Type    string
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Resource != "" {
		fmt.Fprintf(&b, " %s", e.Resource)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Type != "" {
		fmt.Fprintf(&b, " (%s)", e.Type)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Class derives the StatusClass from the response status.
func (e *TransportError) Class() StatusClass {
	switch {
	case e.StatusCode == 0:
		return ClassNetwork
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ClassClient
	default:
		return ClassServer
	}
}

// Retryable is false only for 4xx responses.
func (e *TransportError) Retryable() bool {
	return e.Class() != ClassClient
}

// IsRetryable reports whether err is a TransportError worth retrying.
// Configuration errors and anything else are not.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// parseEnvelope pulls type and message out of an Airtable error body. Both
// {"error":{"type":"..","message":".."}} and {"error":"NOT_FOUND"} occur.
func parseEnvelope(body []byte) (typ, msg string) {
	e := gjson.GetBytes(body, "error")
	switch {
	case e.IsObject():
		return e.Get("type").String(), e.Get("message").String()
	case e.Type == gjson.String:
		return e.Str, ""
	}
	return "", strings.TrimSpace(string(body))
}

// ErrorContext carries the identifiers needed to produce a useful message for
// a failed call.
type ErrorContext struct {
	Base      string
	Table     string
	Resource  resource.Key
	Operation string
}

// Friendly wraps err in a message that tells the user what to check. Errors
// that are not TransportErrors are returned with the operation prefixed.
func Friendly(err error, ec ErrorContext) error {
	if err == nil {
		return nil
	}

	where := ec.Table
	if where == "" {
		where = string(ec.Resource)
	}

	var te *TransportError
	if !errors.As(err, &te) {
		return fmt.Errorf("failed to %s %s: %w", ec.Operation, where, err)
	}

	var hint string
	switch te.StatusCode {
	case http.StatusUnauthorized:
		hint = "the token was rejected. Check AIRTABLE_TOKEN"
	case http.StatusForbidden:
		hint = fmt.Sprintf("the token has no access to base %s. Check the token scopes", ec.Base)
	case http.StatusNotFound:
		hint = fmt.Sprintf("table %q was not found in base %s. Check the table name overrides", where, ec.Base)
	case http.StatusUnprocessableEntity:
		hint = "the request was rejected. Check field names, values and formulas"
	case http.StatusTooManyRequests:
		hint = "rate limited by Airtable. Try again shortly"
	default:
		if te.Class() == ClassNetwork {
			hint = "could not reach Airtable"
		}
	}

	if hint == "" {
		return fmt.Errorf("failed to %s %s: %w", ec.Operation, where, err)
	}
	return fmt.Errorf("failed to %s %s: %s: %w", ec.Operation, where, hint, err)
}
