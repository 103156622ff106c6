package chain

import (
	"math"
	"math/big"

	"github.com/crytic/spongediff/utils"
	"github.com/ethereum/go-ethereum/common"
	gethMath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethState "github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/ethereum/go-ethereum/triedb/hashdb"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// executionGasLimit is the gas limit attached to every message. It is effectively infinite so that candidate
// execution is never cost-constrained, while leaving headroom for go-ethereum's refund arithmetic.
const executionGasLimit = math.MaxUint64 / 2

// ExecutionEnv is an isolated, in-memory EVM world hosting a single deployed contract. Each fuzzer worker owns
// exactly one environment for its entire run, so no locking is performed. Unlike an ephemeral call context, every
// executed message commits its state changes, which is what allows a stateful candidate to accumulate data across
// calls.
type ExecutionEnv struct {
	// chainConfig describes the fork configuration the environment executes under.
	chainConfig *params.ChainConfig

	// db is the in-memory key-value store backing the trie database.
	db ethdb.Database

	// stateDatabase is the state database layered over db, used to resolve tries and contract code.
	stateDatabase gethState.Database

	// state is the current world state. Message executions are finalised into it and never reverted.
	state *gethState.StateDB

	// blockContext is the fixed block context every message executes under. Keeping it constant makes execution
	// depend only on calldata and accumulated contract state.
	blockContext vm.BlockContext

	// contractAddress is the address the candidate code blob is deployed at.
	contractAddress common.Address

	// senderAddress is the externally owned account every message originates from.
	senderAddress common.Address
}

// NewExecutionEnv creates a new ExecutionEnv with the provided candidate code deployed at contractAddress and a funded
// sender account. The deployment happens through the genesis allocation, so the code's content hash is recorded in
// state the same way it would be for any deployed contract. Returns the environment, or an error if one occurred.
func NewExecutionEnv(contractAddress common.Address, code []byte, senderAddress common.Address) (*ExecutionEnv, error) {
	// An environment without candidate code can never execute anything meaningful, so reject it outright.
	if len(code) == 0 {
		return nil, errors.New("could not create execution environment: no contract code was provided")
	}

	// Copy the test chain config and enable the recent forks at genesis, so the interpreter supports the full
	// current opcode set.
	chainConfig, err := utils.CopyChainConfig(params.TestChainConfig)
	if err != nil {
		return nil, err
	}
	forkTime := uint64(0)
	chainConfig.ShanghaiTime = &forkTime
	chainConfig.CancunTime = &forkTime
	chainConfig.PragueTime = &forkTime
	chainConfig.BlobScheduleConfig = params.DefaultBlobSchedule

	// Create our genesis definition. The allocation is the deployed-code table: it places the candidate blob at its
	// address and funds the sender.
	genesisDefinition := &core.Genesis{
		Config:    chainConfig,
		Nonce:     0,
		Timestamp: 0,
		ExtraData: []byte{0x73, 0x70, 0x30, 0x6E, 0x67, 0x33},
		Alloc: gethTypes.GenesisAlloc{
			contractAddress: {
				Code:    code,
				Balance: big.NewInt(0),
			},
			senderAddress: {
				Balance: gethMath.MaxBig256,
			},
		},
		Difficulty: common.Big0,
		Mixhash:    common.Hash{},
		Coinbase:   common.Address{},
		Number:     0,
		GasUsed:    0,
		ParentHash: common.Hash{},
		BaseFee:    big.NewInt(0),
	}

	// Create an in-memory database and commit our genesis definition to obtain a genesis block.
	db := rawdb.NewMemoryDatabase()
	trieDB := triedb.NewDatabase(db, &triedb.Config{HashDB: hashdb.Defaults})
	genesisBlock := genesisDefinition.MustCommit(db, trieDB)

	// Create our state database over-top our database and open the world state at the genesis root.
	stateDatabase := gethState.NewDatabase(trieDB, nil)
	stateDB, err := gethState.New(genesisBlock.Root(), stateDatabase)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &ExecutionEnv{
		chainConfig:     chainConfig,
		db:              db,
		stateDatabase:   stateDatabase,
		state:           stateDB,
		blockContext:    newExecutionEnvBlockContext(genesisBlock.Header()),
		contractAddress: contractAddress,
		senderAddress:   senderAddress,
	}, nil
}

// Execute runs a single message carrying the provided calldata from the sender to the deployed contract, and commits
// the resulting state so storage writes persist into the next call. A non-nil error indicates the message could not
// be applied at all; contract-level failures (reverts, VM faults) are reported through the returned
// core.ExecutionResult instead.
func (e *ExecutionEnv) Execute(data []byte) (*core.ExecutionResult, error) {
	// Build a message from the configured sender to the contract. The nonce is read from the current state so that
	// committed executions chain naturally.
	msg := &core.Message{
		To:               &e.contractAddress,
		From:             e.senderAddress,
		Nonce:            e.state.GetNonce(e.senderAddress),
		Value:            big.NewInt(0),
		GasLimit:         executionGasLimit,
		GasPrice:         big.NewInt(0),
		GasFeeCap:        big.NewInt(0),
		GasTipCap:        big.NewInt(0),
		Data:             data,
		AccessList:       nil,
		SkipNonceChecks:  true,
		SkipFromEOACheck: true,
	}

	// Top the sender back up to an effectively infinite balance so gas accounting can never fail.
	e.state.SetBalance(msg.From, uint256.MustFromBig(gethMath.MaxBig256), tracing.BalanceChangeUnspecified)

	// Create our EVM instance.
	evm := vm.NewEVM(e.blockContext, e.state, e.chainConfig, vm.Config{NoBaseFee: true})

	// Fund the gas pool, so it can execute endlessly (no block gas limit).
	gasPool := new(core.GasPool).AddGas(math.MaxUint64)

	// Perform our state transition to obtain the result.
	msgResult, err := core.ApplyMessage(evm, msg, gasPool)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Finalise the journal into the state so the write set survives into the next call.
	e.state.Finalise(true)

	return msgResult, nil
}

// ContractAddress returns the address the candidate code blob is deployed at.
func (e *ExecutionEnv) ContractAddress() common.Address {
	return e.contractAddress
}

// SenderAddress returns the externally owned account messages originate from.
func (e *ExecutionEnv) SenderAddress() common.Address {
	return e.senderAddress
}

// ContractCode returns the deployed candidate code blob as recorded in state.
func (e *ExecutionEnv) ContractCode() []byte {
	return e.state.GetCode(e.contractAddress)
}

// ContractCodeHash returns the content hash of the deployed candidate code blob.
func (e *ExecutionEnv) ContractCodeHash() common.Hash {
	return e.state.GetCodeHash(e.contractAddress)
}

// StorageAt reads a storage slot of the deployed contract. This is primarily useful for inspecting candidate state
// in tests.
func (e *ExecutionEnv) StorageAt(slot common.Hash) common.Hash {
	return e.state.GetState(e.contractAddress, slot)
}

// Close releases the trie database resources held by the environment.
func (e *ExecutionEnv) Close() error {
	return e.stateDatabase.TrieDB().Close()
}
