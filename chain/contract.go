package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/agentpay/paygate"
)

// gatewayABI is the read surface of the payment gateway contract.
const gatewayABI = `[{"inputs":[{"internalType":"bytes32","name":"id","type":"bytes32"}],"name":"getPayment","outputs":[{"internalType":"address","name":"payer","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"bool","name":"settled","type":"bool"}],"stateMutability":"view","type":"function"}]`

// ContractClient reads escrowed payments from the payment gateway contract
// over JSON-RPC.
type ContractClient struct {
	ec       *ethclient.Client
	contract common.Address
	abi      abi.ABI
	timeout  time.Duration
}

// ContractOption customizes a ContractClient.
type ContractOption func(*ContractClient)

// WithLookupTimeout overrides the default lookup timeout.
func WithLookupTimeout(d time.Duration) ContractOption {
	return func(c *ContractClient) {
		c.timeout = d
	}
}

// NewContractClient dials the given JSON-RPC endpoint and prepares calls
// against the payment gateway contract at contractAddr.
func NewContractClient(rpcURL, contractAddr string, opts ...ContractOption) (*ContractClient, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("chain: invalid gateway contract address %q", contractAddr)
	}

	parsed, err := abi.JSON(strings.NewReader(gatewayABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parsing gateway ABI: %w", err)
	}

	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dialing %q: %w", rpcURL, err)
	}

	c := &ContractClient{
		ec:       ec,
		contract: common.HexToAddress(contractAddr),
		abi:      parsed,
		timeout:  paygate.DefaultTimeouts.LookupTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *ContractClient) Close() {
	c.ec.Close()
}

// Lookup reads the escrow record for credentialID. An unknown or unsettled
// credential returns Valid=false; transport and ABI failures return an error
// wrapping paygate.ErrChainUnavailable.
func (c *ContractClient) Lookup(ctx context.Context, credentialID string) (*Payment, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := c.abi.Pack("getPayment", credentialKey(credentialID))
	if err != nil {
		return nil, fmt.Errorf("%w: packing call: %v", paygate.ErrChainUnavailable, err)
	}

	out, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", paygate.ErrChainUnavailable, err)
	}

	values, err := c.abi.Unpack("getPayment", out)
	if err != nil {
		return nil, fmt.Errorf("%w: unpacking result: %v", paygate.ErrChainUnavailable, err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("%w: unexpected result arity %d", paygate.ErrChainUnavailable, len(values))
	}

	payer, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected payer type %T", paygate.ErrChainUnavailable, values[0])
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected amount type %T", paygate.ErrChainUnavailable, values[1])
	}
	settled, ok := values[2].(bool)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected settled type %T", paygate.ErrChainUnavailable, values[2])
	}

	// A zero payer means the contract holds no record for the id.
	if !settled || payer == (common.Address{}) {
		return &Payment{Valid: false}, nil
	}
	return &Payment{Valid: true, Payer: payer.Hex(), Amount: amount}, nil
}

// credentialKey maps a credential id to the contract's bytes32 key: a
// 32-byte hex string is used verbatim, anything else is keccak256-hashed.
func credentialKey(credentialID string) [32]byte {
	trimmed := strings.TrimPrefix(credentialID, "0x")
	if len(trimmed) == 64 && isHex(trimmed) {
		return [32]byte(common.HexToHash(credentialID))
	}
	return [32]byte(crypto.Keccak256Hash([]byte(credentialID)))
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
