// Package onchain reads settled DSCR verifications from the verification contract.
// Every failure is logged and reported as "no verification".
package onchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mmdatafocus/lending_backend/config"
	"github.com/mmdatafocus/lending_backend/utils"
	"github.com/sirupsen/logrus"
)

// VerifierABI covers the two read-only entry points the backend calls.
const VerifierABI = `[
	{"type":"function","name":"hasVerifiedDscr","stateMutability":"view",
	 "inputs":[{"name":"loanId","type":"bytes32"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getVerifiedResult","stateMutability":"view",
	 "inputs":[{"name":"loanId","type":"bytes32"}],
	 "outputs":[
		{"name":"dscr","type":"uint256"},
		{"name":"rateBps","type":"uint256"},
		{"name":"proofHash","type":"bytes32"},
		{"name":"verifiedAt","type":"uint256"}]}
]`

const (
	methodHasVerified = "hasVerifiedDscr"
	methodGetResult   = "getVerifiedResult"
)

var verifierABI = mustParseABI(VerifierABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("onchain: invalid verifier abi: %v", err))
	}
	return parsed
}

// Verification is the settled result for one loan. Dscr is fixed-point x1000.
type Verification struct {
	HasVerified bool
	Dscr        int64
	RateBps     int64
	ProofHash   string
	VerifiedAt  time.Time
}

// ContractCaller is the slice of ethclient.Client the reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Reader struct {
	cfg      config.ChainConfig
	contract common.Address
	logger   *logrus.Logger

	bound bool

	mu     sync.Mutex
	caller ContractCaller
}

// NewReader dials lazily on first use so a node outage at boot does not block startup.
func NewReader(cfg config.ChainConfig, logger *logrus.Logger) *Reader {
	r := &Reader{cfg: cfg, logger: logger}
	if cfg.Timeout <= 0 {
		r.cfg.Timeout = 5 * time.Second
	}
	if common.IsHexAddress(cfg.ContractAddress) {
		r.contract = common.HexToAddress(cfg.ContractAddress)
	}
	return r
}

// NewReaderWithCaller binds the reader to an existing caller, e.g. a simulated backend.
func NewReaderWithCaller(cfg config.ChainConfig, caller ContractCaller, logger *logrus.Logger) *Reader {
	r := NewReader(cfg, logger)
	r.caller = caller
	r.bound = caller != nil
	return r
}

func (r *Reader) ContractAddress() string {
	if r == nil || r.contract == (common.Address{}) {
		return ""
	}
	return r.contract.Hex()
}

func (r *Reader) configured() bool {
	return r != nil && r.contract != (common.Address{}) && (r.bound || r.cfg.RPCURL != "")
}

// ReadVerification returns the settled verification for loanId, or nil when there is
// none or the chain cannot be read.
func (r *Reader) ReadVerification(ctx context.Context, loanId string) *Verification {
	if !r.configured() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	v, err := r.readVerification(ctx, LoanKey(loanId))
	if err != nil {
		config.LogWarn(r.logger, "onchain/reader.go", "ReadVerification", "reading verification contract", loanId, err)
		return nil
	}
	return v
}

func (r *Reader) readVerification(ctx context.Context, key [32]byte) (*Verification, error) {
	caller, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}

	out, err := r.call(ctx, caller, methodHasVerified, key)
	if err != nil {
		return nil, err
	}
	has, ok := out[0].(bool)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output %T", methodHasVerified, out[0])
	}
	if !has {
		return nil, nil
	}

	out, err = r.call(ctx, caller, methodGetResult, key)
	if err != nil {
		return nil, err
	}
	return decodeResult(out)
}

func (r *Reader) call(ctx context.Context, caller ContractCaller, method string, key [32]byte) ([]interface{}, error) {
	data, err := verifierABI.Pack(method, key)
	if err != nil {
		return nil, err
	}
	contract := r.contract
	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	out, err := verifierABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty output", method)
	}
	return out, nil
}

func (r *Reader) dial(ctx context.Context) (ContractCaller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.caller != nil {
		return r.caller, nil
	}
	client, err := ethclient.DialContext(ctx, r.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", r.cfg.RPCURL, err)
	}
	r.caller = client
	return client, nil
}

func decodeResult(out []interface{}) (*Verification, error) {
	if len(out) != 4 {
		return nil, fmt.Errorf("%s: expected 4 outputs, got %d", methodGetResult, len(out))
	}
	dscrValue, err1 := bigToInt64(out[0])
	rateBps, err2 := bigToInt64(out[1])
	verifiedAt, err3 := bigToInt64(out[3])
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, fmt.Errorf("%s: %w", methodGetResult, err)
	}
	proof, ok := out[2].([32]byte)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected proof hash type %T", methodGetResult, out[2])
	}

	return &Verification{
		HasVerified: true,
		Dscr:        dscrValue,
		RateBps:     rateBps,
		ProofHash:   DecodeProofHashBytes(proof),
		VerifiedAt:  utils.EpochToTime(float64(verifiedAt)),
	}, nil
}

func bigToInt64(v interface{}) (int64, error) {
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return 0, fmt.Errorf("unexpected numeric output %T", v)
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("value %s overflows int64", n)
	}
	return n.Int64(), nil
}
