package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/raouf2ouf/kandled/internal/domain"
)

const erc20CoreABI = `[
	{
		"type": "function",
		"name": "balanceOf",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"type": "function",
		"name": "allowance",
		"stateMutability": "view",
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

var erc20ABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(erc20CoreABI))
	if err != nil {
		panic(fmt.Sprintf("chain: parse erc20 ABI: %v", err))
	}
}

// BalanceOf reads holder's balance of the given ERC-20 token.
func BalanceOf(ctx context.Context, client Client, token, holder common.Address) (*big.Int, error) {
	return readUint256(ctx, client, token, erc20ABI, "balanceOf", holder)
}

// Allowance reads the amount owner has approved spender to move.
func Allowance(ctx context.Context, client Client, token, owner, spender common.Address) (*big.Int, error) {
	return readUint256(ctx, client, token, erc20ABI, "allowance", owner, spender)
}

func readUint256(ctx context.Context, client Client, to common.Address, contract abi.ABI, method string, args ...any) (*big.Int, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	res, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	v, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: %s returned %T: %w", method, res[0], domain.ErrDecode)
	}
	return v, nil
}
