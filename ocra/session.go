// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

package ocra

import "fmt"

// session is the state shared by every challenge-response party: the key
// and the local suite, plus the suite the peer computes with when the
// two sides are configured differently.
type session struct {
	key    []byte
	suite  *Suite
	remote *Suite
}

func newSession(key []byte, suite, remoteSuite string) (session, error) {
	local, err := ParseSuite(suite)
	if err != nil {
		return session{}, err
	}
	if _, ok := local.dataInput.Challenge(); !ok {
		return session{}, fmt.Errorf("%w: suite %q declares no challenge", ErrSuite, suite)
	}
	s := session{key: key, suite: local}
	if remoteSuite != "" {
		s.remote, err = ParseSuite(remoteSuite)
		if err != nil {
			return session{}, err
		}
		if _, ok := s.remote.dataInput.Challenge(); !ok {
			return session{}, fmt.Errorf("%w: suite %q declares no challenge", ErrSuite, remoteSuite)
		}
	}
	return s, nil
}

// remoteOrLocal is the suite used for the legs the peer computes.
func (s session) remoteOrLocal() *Suite {
	if s.remote != nil {
		return s.remote
	}
	return s.suite
}

// rejectChallengeFields refuses caller-supplied challenge inputs; the
// exchange owns the challenge values.
func rejectChallengeFields(in Input) error {
	if in.Challenge != "" || in.CombinedChallenge != "" {
		return fmt.Errorf("%w: challenge fields are managed by the exchange", ErrUnexpectedParameter)
	}
	return nil
}

// One-way server states.
const (
	oneWayStateChallenge = iota + 1
	oneWayStateVerify
	oneWayStateFinished
)

// ChallengeResponseServer drives the verifier side of the one-way
// challenge-response mode: issue a random challenge, then verify the
// response the client computed over it. Methods must be called in that
// order; mismatched responses leave the challenge outstanding so the
// client may retry.
type ChallengeResponseServer struct {
	session
	challenge string
	state     int
}

// NewChallengeResponseServer creates a server session. remoteSuite
// describes the suite the client computes with when it differs from the
// server's own; pass "" when both sides share one. Both suites must
// declare a challenge question.
func NewChallengeResponseServer(key []byte, suite, remoteSuite string) (*ChallengeResponseServer, error) {
	s, err := newSession(key, suite, remoteSuite)
	if err != nil {
		return nil, err
	}
	return &ChallengeResponseServer{session: s, state: oneWayStateChallenge}, nil
}

// NewChallenge issues the challenge to send to the client, generated
// from the client's suite.
func (s *ChallengeResponseServer) NewChallenge() (string, error) {
	if s.state != oneWayStateChallenge {
		return "", fmt.Errorf("%w: challenge already issued", ErrState)
	}
	q, err := s.remoteOrLocal().NewChallenge()
	if err != nil {
		return "", err
	}
	s.challenge = q
	s.state = oneWayStateVerify
	return q, nil
}

// VerifyResponse checks the client's response against the outstanding
// challenge. A match finishes the session; a mismatch is (false, nil)
// and keeps the challenge live for another attempt.
func (s *ChallengeResponseServer) VerifyResponse(response string, in Input) (bool, error) {
	if s.state != oneWayStateVerify {
		return false, fmt.Errorf("%w: no outstanding challenge", ErrState)
	}
	if err := rejectChallengeFields(in); err != nil {
		return false, err
	}
	in.Challenge = s.challenge
	ok, err := s.remoteOrLocal().Verify(response, s.key, in)
	if err != nil || !ok {
		return false, err
	}
	s.state = oneWayStateFinished
	return true, nil
}

// Finished reports whether a response has been verified.
func (s *ChallengeResponseServer) Finished() bool {
	return s.state == oneWayStateFinished
}

// ChallengeResponseClient computes responses to one-way challenges. It
// is stateless beyond suite possession and may answer any number of
// challenges.
type ChallengeResponseClient struct {
	session
}

// NewChallengeResponseClient creates a client. remoteSuite, when given,
// is validated for symmetry with the server constructor; responses are
// always computed with the client's own suite.
func NewChallengeResponseClient(key []byte, suite, remoteSuite string) (*ChallengeResponseClient, error) {
	s, err := newSession(key, suite, remoteSuite)
	if err != nil {
		return nil, err
	}
	return &ChallengeResponseClient{session: s}, nil
}

// ComputeResponse evaluates the suite over the server's challenge.
func (c *ChallengeResponseClient) ComputeResponse(challenge string, in Input) (string, error) {
	if err := rejectChallengeFields(in); err != nil {
		return "", err
	}
	in.Challenge = challenge
	return c.suite.Compute(c.key, in)
}

// Mutual client states.
const (
	mutualClientStateChallenge = iota + 1
	mutualClientStateVerifyServer
	mutualClientStateRespond
	mutualClientStateFinished
)

// MutualChallengeResponseClient drives the client side of the mutual
// challenge-response mode: open with a client challenge, verify the
// server's response over client||server, then answer over
// server||client.
type MutualChallengeResponseClient struct {
	session
	clientChallenge string
	serverChallenge string
	state           int
}

// NewMutualChallengeResponseClient creates the client side of a mutual
// exchange. remoteSuite describes the suite the server computes its
// response with when it differs from the client's own; pass "" when both
// sides share one.
func NewMutualChallengeResponseClient(key []byte, suite, remoteSuite string) (*MutualChallengeResponseClient, error) {
	s, err := newSession(key, suite, remoteSuite)
	if err != nil {
		return nil, err
	}
	return &MutualChallengeResponseClient{session: s, state: mutualClientStateChallenge}, nil
}

// ComputeClientChallenge opens the exchange with the challenge to send
// to the server. A non-empty qc overrides the generated question; it is
// validated against the suite when the server response is verified.
func (c *MutualChallengeResponseClient) ComputeClientChallenge(qc string) (string, error) {
	if c.state != mutualClientStateChallenge {
		return "", fmt.Errorf("%w: client challenge already issued", ErrState)
	}
	if qc == "" {
		var err error
		if qc, err = c.remoteOrLocal().NewChallenge(); err != nil {
			return "", err
		}
	}
	c.clientChallenge = qc
	c.state = mutualClientStateVerifyServer
	return qc, nil
}

// VerifyServerResponse authenticates the server: its response must match
// the combined client||server challenge. A mismatch is (false, nil) and
// the session stays open for a corrected response.
func (c *MutualChallengeResponseClient) VerifyServerResponse(response, serverChallenge string, in Input) (bool, error) {
	if c.state != mutualClientStateVerifyServer {
		return false, fmt.Errorf("%w: no outstanding client challenge", ErrState)
	}
	if err := rejectChallengeFields(in); err != nil {
		return false, err
	}
	c.serverChallenge = serverChallenge
	in.CombinedChallenge = c.clientChallenge + c.serverChallenge
	ok, err := c.remoteOrLocal().Verify(response, c.key, in)
	if err != nil || !ok {
		return false, err
	}
	c.state = mutualClientStateRespond
	return true, nil
}

// ComputeClientResponse computes the client's own response over the
// combined server||client challenge with the local suite, finishing the
// exchange. Only reachable after the server response verified.
func (c *MutualChallengeResponseClient) ComputeClientResponse(in Input) (string, error) {
	if c.state != mutualClientStateRespond {
		return "", fmt.Errorf("%w: server response not verified", ErrState)
	}
	if err := rejectChallengeFields(in); err != nil {
		return "", err
	}
	in.CombinedChallenge = c.serverChallenge + c.clientChallenge
	response, err := c.suite.Compute(c.key, in)
	if err != nil {
		return "", err
	}
	c.state = mutualClientStateFinished
	return response, nil
}

// Finished reports whether the client response has been computed.
func (c *MutualChallengeResponseClient) Finished() bool {
	return c.state == mutualClientStateFinished
}

// Mutual server states.
const (
	mutualServerStateRespond = iota + 1
	mutualServerStateVerifyClient
	mutualServerStateFinished
)

// MutualChallengeResponseServer drives the server side of the mutual
// challenge-response mode: answer the client's opening challenge with a
// response and a server challenge, then verify the client's response.
type MutualChallengeResponseServer struct {
	session
	clientChallenge string
	serverChallenge string
	state           int
}

// NewMutualChallengeResponseServer creates the server side of a mutual
// exchange. remoteSuite describes the suite the client computes its
// response with when it differs from the server's own; pass "" when both
// sides share one.
func NewMutualChallengeResponseServer(key []byte, suite, remoteSuite string) (*MutualChallengeResponseServer, error) {
	s, err := newSession(key, suite, remoteSuite)
	if err != nil {
		return nil, err
	}
	return &MutualChallengeResponseServer{session: s, state: mutualServerStateRespond}, nil
}

// ComputeServerResponse answers the client's opening challenge. A
// non-empty qs overrides the generated server challenge. The response is
// computed with the local suite over client||server; pin inputs are
// dropped since the server leg never uses them. It returns the response
// and the server challenge, both sent to the client.
func (s *MutualChallengeResponseServer) ComputeServerResponse(clientChallenge, qs string, in Input) (string, string, error) {
	if s.state != mutualServerStateRespond {
		return "", "", fmt.Errorf("%w: server response already computed", ErrState)
	}
	if err := rejectChallengeFields(in); err != nil {
		return "", "", err
	}
	if clientChallenge == "" {
		return "", "", fmt.Errorf("%w: client challenge", ErrMissingParameter)
	}
	if qs == "" {
		var err error
		if qs, err = s.suite.NewChallenge(); err != nil {
			return "", "", err
		}
	}
	in.PIN, in.PINDigest = "", nil
	in.CombinedChallenge = clientChallenge + qs
	response, err := s.suite.Compute(s.key, in)
	if err != nil {
		return "", "", err
	}
	s.clientChallenge, s.serverChallenge = clientChallenge, qs
	s.state = mutualServerStateVerifyClient
	return response, qs, nil
}

// VerifyClientResponse authenticates the client: its response must match
// the combined server||client challenge. A mismatch is (false, nil) and
// the session stays open for another attempt.
func (s *MutualChallengeResponseServer) VerifyClientResponse(response string, in Input) (bool, error) {
	if s.state != mutualServerStateVerifyClient {
		return false, fmt.Errorf("%w: no outstanding server response", ErrState)
	}
	if err := rejectChallengeFields(in); err != nil {
		return false, err
	}
	in.CombinedChallenge = s.serverChallenge + s.clientChallenge
	ok, err := s.remoteOrLocal().Verify(response, s.key, in)
	if err != nil || !ok {
		return false, err
	}
	s.state = mutualServerStateFinished
	return true, nil
}

// Finished reports whether the client response has been verified.
func (s *MutualChallengeResponseServer) Finished() bool {
	return s.state == mutualServerStateFinished
}
