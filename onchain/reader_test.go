package onchain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mmdatafocus/lending_backend/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

type fakeContract struct {
	hasVerified bool
	dscr        int64
	rateBps     int64
	proofHash   string
	verifiedAt  int64
	failOn      string
	calls       atomic.Int32
}

func (f *fakeContract) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls.Add(1)
	method, err := verifierABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	if method.Name == f.failOn {
		return nil, errors.New("execution reverted")
	}
	switch method.Name {
	case methodHasVerified:
		return method.Outputs.Pack(f.hasVerified)
	case methodGetResult:
		var proof [32]byte
		copy(proof[:], f.proofHash)
		return method.Outputs.Pack(big.NewInt(f.dscr), big.NewInt(f.rateBps), proof, big.NewInt(f.verifiedAt))
	}
	return nil, errors.New("unknown method")
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testChainConfig() config.ChainConfig {
	return config.ChainConfig{ChainID: 11155111, ContractAddress: testContract, Timeout: time.Second}
}

func TestReadVerification_Settled(t *testing.T) {
	fake := &fakeContract{hasVerified: true, dscr: 1850, rateBps: 1050, proofHash: "abc123", verifiedAt: 1700000000}
	reader := NewReaderWithCaller(testChainConfig(), fake, quietLogger())

	v := reader.ReadVerification(context.Background(), "loan-1")
	require.NotNil(t, v)
	assert.True(t, v.HasVerified)
	assert.Equal(t, int64(1850), v.Dscr)
	assert.Equal(t, int64(1050), v.RateBps)
	assert.Equal(t, "abc123", v.ProofHash)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), v.VerifiedAt)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestReadVerification_UnsetVerifiedAtIsZeroTime(t *testing.T) {
	fake := &fakeContract{hasVerified: true, dscr: 1200, rateBps: 1350, proofHash: "abc", verifiedAt: 0}
	reader := NewReaderWithCaller(testChainConfig(), fake, quietLogger())

	v := reader.ReadVerification(context.Background(), "loan-1")
	require.NotNil(t, v)
	assert.True(t, v.VerifiedAt.IsZero())
}

func TestReadVerification_NotVerifiedSkipsResultCall(t *testing.T) {
	fake := &fakeContract{hasVerified: false}
	reader := NewReaderWithCaller(testChainConfig(), fake, quietLogger())

	assert.Nil(t, reader.ReadVerification(context.Background(), "loan-1"))
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestReadVerification_FailuresAreSoft(t *testing.T) {
	for _, method := range []string{methodHasVerified, methodGetResult} {
		t.Run(method, func(t *testing.T) {
			fake := &fakeContract{hasVerified: true, failOn: method}
			reader := NewReaderWithCaller(testChainConfig(), fake, quietLogger())
			assert.Nil(t, reader.ReadVerification(context.Background(), "loan-1"))
		})
	}
}

func TestReadVerification_Unconfigured(t *testing.T) {
	assert.Nil(t, NewReader(config.ChainConfig{}, quietLogger()).ReadVerification(context.Background(), "loan-1"))
	assert.Nil(t, NewReader(config.ChainConfig{RPCURL: "http://localhost:1", ContractAddress: "not-an-address"}, quietLogger()).
		ReadVerification(context.Background(), "loan-1"))

	var nilReader *Reader
	assert.Nil(t, nilReader.ReadVerification(context.Background(), "loan-1"))
	assert.Equal(t, "", nilReader.ContractAddress())
}

func TestReader_ContractAddressIsChecksummed(t *testing.T) {
	reader := NewReader(config.ChainConfig{ContractAddress: strings.ToLower(testContract)}, quietLogger())
	assert.Equal(t, testContract, reader.ContractAddress())
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcCallArg struct {
	Input hexutil.Bytes `json:"input"`
	Data  hexutil.Bytes `json:"data"`
}

// newRPCNode serves eth_call against fake over JSON-RPC the way a node would.
func newRPCNode(t *testing.T, fake *fakeContract) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		if req.Method != "eth_call" || len(req.Params) == 0 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		var arg rpcCallArg
		if err := json.Unmarshal(req.Params[0], &arg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := arg.Input
		if len(data) == 0 {
			data = arg.Data
		}
		out, err := fake.CallContract(r.Context(), ethereum.CallMsg{Data: data}, nil)
		if err != nil {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": 3, "message": err.Error()},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID, "result": "0x" + hex.EncodeToString(out),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReadVerification_OverJSONRPC(t *testing.T) {
	fake := &fakeContract{hasVerified: true, dscr: 2400, rateBps: 900, proofHash: "proof-9", verifiedAt: 1700000000}
	node := newRPCNode(t, fake)

	cfg := testChainConfig()
	cfg.RPCURL = node.URL
	reader := NewReader(cfg, quietLogger())

	v := reader.ReadVerification(context.Background(), "0xfeed")
	require.NotNil(t, v)
	assert.Equal(t, int64(2400), v.Dscr)
	assert.Equal(t, "proof-9", v.ProofHash)
}

func TestReadVerification_NodeErrorIsSoft(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write(bytes.Repeat([]byte("x"), 10))
	}))
	defer node.Close()

	cfg := testChainConfig()
	cfg.RPCURL = node.URL
	assert.Nil(t, NewReader(cfg, quietLogger()).ReadVerification(context.Background(), "loan-1"))
}
