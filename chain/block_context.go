package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
)

// newExecutionEnvBlockContext obtains a vm.BlockContext pinned to a single synthetic block built on top of the
// genesis header. The environment never mines blocks, so the same context is reused for every message execution.
func newExecutionEnvBlockContext(genesisHeader *types.Header) vm.BlockContext {
	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash: func(n uint64) common.Hash {
			// There is no block history to resolve against, so every block hash lookup returns an empty hash.
			return common.Hash{}
		},
		Coinbase:    genesisHeader.Coinbase,
		BlockNumber: new(big.Int).Add(genesisHeader.Number, common.Big1),
		Time:        genesisHeader.Time + 1,
		Difficulty:  new(big.Int).Set(genesisHeader.Difficulty),
		BaseFee:     big.NewInt(0),
		BlobBaseFee: big.NewInt(0),
		GasLimit:    genesisHeader.GasLimit,
		Random:      &common.Hash{},
	}
}
