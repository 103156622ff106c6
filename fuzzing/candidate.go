package fuzzing

import (
	"fmt"
	"strings"

	"github.com/crytic/spongediff/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// candidateABI describes the call surface every sponge candidate contract must expose: absorb(bytes) feeds
// input into the sponge state, squeeze() finalizes the state and returns the digest.
const candidateABI = `[
	{"type": "function", "name": "absorb", "stateMutability": "nonpayable", "inputs": [{"name": "input", "type": "bytes"}], "outputs": []},
	{"type": "function", "name": "squeeze", "stateMutability": "nonpayable", "inputs": [], "outputs": [{"name": "digest", "type": "bytes32"}]}
]`

// Candidate represents a deployed sponge candidate contract, wrapping an execution environment with the
// absorb/squeeze call protocol. A Candidate is not safe for concurrent use, so each worker holds its own.
type Candidate struct {
	// env describes the execution environment the candidate contract is deployed in.
	env *chain.ExecutionEnv

	// contractABI describes the ABI used to encode calls to the candidate and decode its returns.
	contractABI abi.ABI
}

// NewCandidate creates a Candidate around the provided execution environment, in which the candidate
// bytecode is expected to already be deployed.
// Returns the new Candidate, or an error if one occurred.
func NewCandidate(env *chain.ExecutionEnv) (*Candidate, error) {
	// Parse our call ABI.
	contractABI, err := abi.JSON(strings.NewReader(candidateABI))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Candidate{
		env:         env,
		contractABI: contractABI,
	}, nil
}

// Absorb feeds the provided input into the candidate's sponge state.
// Returns an ExecutionFaultError if the call reverted or faulted, or an error if the call could not be
// executed at all.
func (c *Candidate) Absorb(input []byte) error {
	// Pack our calldata.
	data, err := c.contractABI.Pack("absorb", input)
	if err != nil {
		return errors.WithStack(err)
	}

	// Execute the call and verify the contract accepted it.
	result, err := c.env.Execute(data)
	if err != nil {
		return err
	}
	if result.Failed() {
		return newExecutionFaultError("absorb", result.Err, result.ReturnData)
	}
	return nil
}

// Squeeze finalizes the candidate's sponge state and returns the digest it produced. The contract resets
// its own pending input as part of this call, leaving it ready for the next Absorb.
// Returns the candidate digest, an ExecutionFaultError if the call reverted, faulted, or returned data
// which does not decode to a digest, or an error if the call could not be executed at all.
func (c *Candidate) Squeeze() ([32]byte, error) {
	var digest [32]byte

	// Pack our calldata.
	data, err := c.contractABI.Pack("squeeze")
	if err != nil {
		return digest, errors.WithStack(err)
	}

	// Execute the call and verify the contract accepted it.
	result, err := c.env.Execute(data)
	if err != nil {
		return digest, err
	}
	if result.Failed() {
		return digest, newExecutionFaultError("squeeze", result.Err, result.ReturnData)
	}

	// Decode the returned digest.
	values, err := c.contractABI.Unpack("squeeze", result.Return())
	if err != nil {
		return digest, newExecutionFaultError("squeeze", errors.Errorf("malformed return data: %v", err), result.Return())
	}
	digest, ok := values[0].([32]byte)
	if !ok {
		return digest, newExecutionFaultError("squeeze", errors.Errorf("return data did not decode to a digest"), result.Return())
	}
	return digest, nil
}

// Close releases the candidate's underlying execution environment.
func (c *Candidate) Close() error {
	return c.env.Close()
}

// ExecutionFaultError describes a candidate call which could not produce a usable result: the contract
// reverted, the EVM faulted, or the return data could not be decoded. Faults are fatal to a fuzzing
// campaign and are never retried, as the candidate's state can no longer be trusted.
type ExecutionFaultError struct {
	// Method describes the candidate method whose call faulted.
	Method string

	// VMError describes the error reported for the call, if any.
	VMError error

	// RevertReason describes the decoded revert reason string, if the contract reverted with one.
	RevertReason string

	// ReturnData describes the raw data returned by the faulting call.
	ReturnData []byte
}

// newExecutionFaultError creates an ExecutionFaultError for the provided method, decoding a revert reason
// from the return data if one is present.
func newExecutionFaultError(method string, vmError error, returnData []byte) *ExecutionFaultError {
	faultError := &ExecutionFaultError{
		Method:     method,
		VMError:    vmError,
		ReturnData: returnData,
	}
	if reason, err := abi.UnpackRevert(returnData); err == nil {
		faultError.RevertReason = reason
	}
	return faultError
}

// Error obtains a message describing the fault.
func (e *ExecutionFaultError) Error() string {
	msg := fmt.Sprintf("candidate %v call faulted", e.Method)
	if e.VMError != nil {
		msg += fmt.Sprintf(": %v", e.VMError)
	}
	if e.RevertReason != "" {
		msg += fmt.Sprintf(" (revert reason: %q)", e.RevertReason)
	}
	return msg
}
