// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

package ocra

import "errors"

// Errors returned by suite parsing, message assembly and the
// challenge-response sessions. Returned errors wrap one of these
// sentinels together with the offending token or field, so callers can
// test them with errors.Is.
var (
	// ErrSuite reports a malformed suite descriptor.
	ErrSuite = errors.New("ocra: invalid suite")

	// ErrMissingParameter reports an input the suite requires but the
	// caller did not supply.
	ErrMissingParameter = errors.New("ocra: missing parameter")

	// ErrInvalidParameter reports an input that fails validation against
	// the suite's data input specification.
	ErrInvalidParameter = errors.New("ocra: invalid parameter")

	// ErrUnexpectedParameter reports an input the suite's data input
	// specification declares no use for.
	ErrUnexpectedParameter = errors.New("ocra: unexpected parameter")

	// ErrState reports a session method called out of sequence. The
	// session must be discarded and the exchange restarted.
	ErrState = errors.New("ocra: invalid session state")
)
