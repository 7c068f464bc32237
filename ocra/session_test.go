// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

package ocra

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneWayExchange(t *testing.T) {
	t.Run("shared suite", func(t *testing.T) {
		server, err := NewChallengeResponseServer(key20, "OCRA-1:HOTP-SHA1-6:QN08", "")
		require.NoError(t, err)
		client, err := NewChallengeResponseClient(key20, "OCRA-1:HOTP-SHA1-6:QN08", "")
		require.NoError(t, err)

		q, err := server.NewChallenge()
		require.NoError(t, err)
		require.Len(t, q, 8)

		response, err := client.ComputeResponse(q, Input{})
		require.NoError(t, err)

		ok, err := server.VerifyResponse(response, Input{})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, server.Finished())
	})

	t.Run("pin-protected suite", func(t *testing.T) {
		const suite = "OCRA-1:HOTP-SHA256-8:QN08-PSHA1"
		server, err := NewChallengeResponseServer(key32, suite, "")
		require.NoError(t, err)
		client, err := NewChallengeResponseClient(key32, suite, "")
		require.NoError(t, err)

		q, err := server.NewChallenge()
		require.NoError(t, err)

		response, err := client.ComputeResponse(q, Input{PIN: pin})
		require.NoError(t, err)

		// The server holds the pin digest, never the pin itself.
		ok, err := server.VerifyResponse(response, Input{PINDigest: []byte(pinSHA1Digest)})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("mismatch keeps the challenge live", func(t *testing.T) {
		server, err := NewChallengeResponseServer(key20, "OCRA-1:HOTP-SHA1-6:QN08", "")
		require.NoError(t, err)
		client, err := NewChallengeResponseClient(key20, "OCRA-1:HOTP-SHA1-6:QN08", "")
		require.NoError(t, err)

		q, err := server.NewChallenge()
		require.NoError(t, err)

		ok, err := server.VerifyResponse("000000", Input{})
		require.NoError(t, err)
		require.False(t, ok)
		assert.False(t, server.Finished())

		response, err := client.ComputeResponse(q, Input{})
		require.NoError(t, err)
		ok, err = server.VerifyResponse(response, Input{})
		require.NoError(t, err)
		assert.True(t, ok, "a retry after a mismatch must still verify")
	})

	t.Run("client answers any number of challenges", func(t *testing.T) {
		client, err := NewChallengeResponseClient(key20, "OCRA-1:HOTP-SHA1-6:QN08", "")
		require.NoError(t, err)

		first, err := client.ComputeResponse("11111111", Input{})
		require.NoError(t, err)
		assert.Equal(t, "243178", first)

		second, err := client.ComputeResponse("22222222", Input{})
		require.NoError(t, err)
		assert.Equal(t, "653583", second)
	})
}

func TestMutualExchangeVectors(t *testing.T) {
	tests := []struct {
		name        string
		key         []byte
		serverSuite string
		clientSuite string
		clientIn    Input // client response computation
		serverIn    Input // server-side verification of that response
		serverCodes []string
		clientCodes []string
	}{
		{
			name:        "SHA256",
			key:         key32,
			serverSuite: "OCRA-1:HOTP-SHA256-8:QA08",
			clientSuite: "OCRA-1:HOTP-SHA256-8:QA08",
			serverCodes: []string{"28247970", "01984843", "65387857", "03351211", "83412541"},
			clientCodes: []string{"15510767", "90175646", "33777207", "95285278", "28934924"},
		},
		{
			name:        "SHA512 with pin on the client leg",
			key:         key64,
			serverSuite: "OCRA-1:HOTP-SHA512-8:QA08",
			clientSuite: "OCRA-1:HOTP-SHA512-8:QA08-PSHA1",
			clientIn:    Input{PIN: pin},
			serverIn:    Input{PINDigest: []byte(pinSHA1Digest)},
			serverCodes: []string{"79496648", "76831980", "12250499", "90856481", "12761449"},
			clientCodes: []string{"18806276", "70020315", "01600026", "18951020", "32528969"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i := range tc.serverCodes {
				qc := "CLI2222" + strconv.Itoa(i)
				qs := "SRV1111" + strconv.Itoa(i)

				server, err := NewMutualChallengeResponseServer(tc.key, tc.serverSuite, tc.clientSuite)
				require.NoError(t, err)
				client, err := NewMutualChallengeResponseClient(tc.key, tc.clientSuite, tc.serverSuite)
				require.NoError(t, err)

				challenge, err := client.ComputeClientChallenge(qc)
				require.NoError(t, err)
				require.Equal(t, qc, challenge)

				response, serverChallenge, err := server.ComputeServerResponse(challenge, qs, Input{})
				require.NoError(t, err)
				assert.Equal(t, tc.serverCodes[i], response, "server response for %s", qc)
				require.Equal(t, qs, serverChallenge)

				ok, err := client.VerifyServerResponse(response, serverChallenge, Input{})
				require.NoError(t, err)
				require.True(t, ok, "server must authenticate to the client")
				assert.False(t, client.Finished())

				clientResponse, err := client.ComputeClientResponse(tc.clientIn)
				require.NoError(t, err)
				assert.Equal(t, tc.clientCodes[i], clientResponse, "client response for %s", qs)
				assert.True(t, client.Finished())

				ok, err = server.VerifyClientResponse(clientResponse, tc.serverIn)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.True(t, server.Finished())
			}
		})
	}
}

func TestMutualExchangeGeneratedChallenges(t *testing.T) {
	const suite = "OCRA-1:HOTP-SHA256-8:QA08"
	server, err := NewMutualChallengeResponseServer(key32, suite, "")
	require.NoError(t, err)
	client, err := NewMutualChallengeResponseClient(key32, suite, "")
	require.NoError(t, err)

	qc, err := client.ComputeClientChallenge("")
	require.NoError(t, err)
	require.Len(t, qc, 8)

	response, qs, err := server.ComputeServerResponse(qc, "", Input{})
	require.NoError(t, err)
	require.Len(t, qs, 8)

	ok, err := client.VerifyServerResponse(response, qs, Input{})
	require.NoError(t, err)
	require.True(t, ok)

	clientResponse, err := client.ComputeClientResponse(Input{})
	require.NoError(t, err)

	ok, err = server.VerifyClientResponse(clientResponse, Input{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, client.Finished())
	assert.True(t, server.Finished())
}

func TestMutualExchangeMismatches(t *testing.T) {
	const suite = "OCRA-1:HOTP-SHA256-8:QA08"

	t.Run("client keeps waiting on a bad server response", func(t *testing.T) {
		client, err := NewMutualChallengeResponseClient(key32, suite, "")
		require.NoError(t, err)
		_, err = client.ComputeClientChallenge("CLI22220")
		require.NoError(t, err)

		ok, err := client.VerifyServerResponse("00000000", "SRV11110", Input{})
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = client.VerifyServerResponse("28247970", "SRV11110", Input{})
		require.NoError(t, err)
		assert.True(t, ok, "a corrected server response must still verify")
	})

	t.Run("server keeps waiting on a bad client response", func(t *testing.T) {
		server, err := NewMutualChallengeResponseServer(key32, suite, "")
		require.NoError(t, err)
		_, _, err = server.ComputeServerResponse("CLI22220", "SRV11110", Input{})
		require.NoError(t, err)

		ok, err := server.VerifyClientResponse("00000000", Input{})
		require.NoError(t, err)
		require.False(t, ok)
		assert.False(t, server.Finished())

		ok, err = server.VerifyClientResponse("15510767", Input{})
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestOneWayServerStateErrors(t *testing.T) {
	server, err := NewChallengeResponseServer(key20, "OCRA-1:HOTP-SHA1-6:QN08", "")
	require.NoError(t, err)

	_, err = server.VerifyResponse("237653", Input{})
	assert.ErrorIs(t, err, ErrState, "verifying before a challenge is issued")

	_, err = server.NewChallenge()
	require.NoError(t, err)
	_, err = server.NewChallenge()
	assert.ErrorIs(t, err, ErrState, "issuing a second challenge")
}

func TestMutualClientStateErrors(t *testing.T) {
	client, err := NewMutualChallengeResponseClient(key32, "OCRA-1:HOTP-SHA256-8:QA08", "")
	require.NoError(t, err)

	_, err = client.VerifyServerResponse("28247970", "SRV11110", Input{})
	assert.ErrorIs(t, err, ErrState, "verifying before the client challenge")

	_, err = client.ComputeClientResponse(Input{})
	assert.ErrorIs(t, err, ErrState, "responding before the server verified")

	_, err = client.ComputeClientChallenge("CLI22220")
	require.NoError(t, err)
	_, err = client.ComputeClientChallenge("CLI22221")
	assert.ErrorIs(t, err, ErrState, "issuing a second client challenge")

	ok, err := client.VerifyServerResponse("28247970", "SRV11110", Input{})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = client.ComputeClientResponse(Input{})
	require.NoError(t, err)
	_, err = client.ComputeClientResponse(Input{})
	assert.ErrorIs(t, err, ErrState, "responding after the exchange finished")
}

func TestMutualServerStateErrors(t *testing.T) {
	server, err := NewMutualChallengeResponseServer(key32, "OCRA-1:HOTP-SHA256-8:QA08", "")
	require.NoError(t, err)

	_, err = server.VerifyClientResponse("15510767", Input{})
	assert.ErrorIs(t, err, ErrState, "verifying before the server responded")

	_, _, err = server.ComputeServerResponse("", "SRV11110", Input{})
	assert.ErrorIs(t, err, ErrMissingParameter, "the client challenge opens the exchange")

	_, _, err = server.ComputeServerResponse("CLI22220", "SRV11110", Input{})
	require.NoError(t, err)
	_, _, err = server.ComputeServerResponse("CLI22220", "SRV11110", Input{})
	assert.ErrorIs(t, err, ErrState, "responding twice")

	ok, err := server.VerifyClientResponse("15510767", Input{})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = server.VerifyClientResponse("15510767", Input{})
	assert.ErrorIs(t, err, ErrState, "verifying after the exchange finished")
}

func TestSessionSuitesMustCarryChallenges(t *testing.T) {
	_, err := NewChallengeResponseServer(key20, "OCRA-1:HOTP-SHA1-6:C", "")
	assert.ErrorIs(t, err, ErrSuite)

	_, err = NewChallengeResponseClient(key20, "OCRA-1:HOTP-SHA1-6:C", "")
	assert.ErrorIs(t, err, ErrSuite)

	_, err = NewMutualChallengeResponseServer(key20, "OCRA-1:HOTP-SHA1-6:QN08", "OCRA-1:HOTP-SHA1-6:C")
	assert.ErrorIs(t, err, ErrSuite, "the remote suite needs a challenge question too")

	_, err = NewMutualChallengeResponseClient(key20, "not a suite", "")
	assert.ErrorIs(t, err, ErrSuite)
}

func TestSessionsOwnTheChallengeFields(t *testing.T) {
	server, err := NewChallengeResponseServer(key20, "OCRA-1:HOTP-SHA1-6:QN08", "")
	require.NoError(t, err)
	_, err = server.NewChallenge()
	require.NoError(t, err)
	_, err = server.VerifyResponse("237653", Input{Challenge: "00000000"})
	assert.ErrorIs(t, err, ErrUnexpectedParameter)

	client, err := NewChallengeResponseClient(key20, "OCRA-1:HOTP-SHA1-6:QN08", "")
	require.NoError(t, err)
	_, err = client.ComputeResponse("11111111", Input{CombinedChallenge: "1212"})
	assert.ErrorIs(t, err, ErrUnexpectedParameter)

	mutual, err := NewMutualChallengeResponseServer(key32, "OCRA-1:HOTP-SHA256-8:QA08", "")
	require.NoError(t, err)
	_, _, err = mutual.ComputeServerResponse("CLI22220", "SRV11110", Input{Challenge: "x"})
	assert.ErrorIs(t, err, ErrUnexpectedParameter)
}

func TestMutualServerDropsPinInputs(t *testing.T) {
	// The server leg never covers a pin even when the caller passes one
	// along for the later client-response verification.
	server, err := NewMutualChallengeResponseServer(key64,
		"OCRA-1:HOTP-SHA512-8:QA08", "OCRA-1:HOTP-SHA512-8:QA08-PSHA1")
	require.NoError(t, err)

	response, _, err := server.ComputeServerResponse("CLI22220", "SRV11110",
		Input{PINDigest: []byte(pinSHA1Digest)})
	require.NoError(t, err)
	assert.Equal(t, "79496648", response)
}
