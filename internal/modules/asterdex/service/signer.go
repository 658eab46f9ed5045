package service

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"aster_bot/internal/apperr"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Params are the request parameters of one exchange call, prior to signing.
type Params map[string]any

func mustABIType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// (paramJSON string, user address, signer address, nonce uint256) — the
// exact payload layout the exchange verifies against.
var signPayloadArgs = abi.Arguments{
	{Type: mustABIType("string")},
	{Type: mustABIType("address")},
	{Type: mustABIType("address")},
	{Type: mustABIType("uint256")},
}

// Signer produces the user/signer/nonce/signature quad for every
// account-scoped request.
type Signer struct {
	user   common.Address
	signer common.Address
	key    *ecdsa.PrivateKey

	mu        sync.Mutex
	lastNonce int64
	now       func() time.Time
}

// NewSigner parses the private key and verifies that it actually controls
// the configured signer address. A mismatch is fatal: every live request
// would be rejected anyway.
func NewSigner(userAddr, signerAddr, privateKey string) (*Signer, error) {
	if !common.IsHexAddress(userAddr) {
		return nil, apperr.New(apperr.KindConfiguration, "invalid user address %q", userAddr)
	}
	if !common.IsHexAddress(signerAddr) {
		return nil, apperr.New(apperr.KindConfiguration, "invalid signer address %q", signerAddr)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindConfiguration, "invalid private key")
	}

	derived := crypto.PubkeyToAddress(key.PublicKey)
	if !strings.EqualFold(derived.Hex(), signerAddr) {
		return nil, apperr.New(apperr.KindConfiguration,
			"private key does not match signer address: expected %s, got %s",
			strings.ToLower(signerAddr), strings.ToLower(derived.Hex()))
	}

	return &Signer{
		user:   common.HexToAddress(userAddr),
		signer: common.HexToAddress(signerAddr),
		key:    key,
		now:    time.Now,
	}, nil
}

func (s *Signer) User() string          { return strings.ToLower(s.user.Hex()) }
func (s *Signer) SignerAddress() string { return strings.ToLower(s.signer.Hex()) }

// Nonce returns the current time in microseconds, bumped monotonically so
// that two calls inside the same microsecond still get distinct values.
func (s *Signer) Nonce() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.now().UnixMicro()
	if n <= s.lastNonce {
		n = s.lastNonce + 1
	}
	s.lastNonce = n
	return n
}

// CanonicalParams renders the parameter map in the exchange's canonical
// form: nil values dropped, everything stringified, keys in byte order,
// compact JSON with no whitespace.
func CanonicalParams(params Params) (string, error) {
	keys := make([]string, 0, len(params))
	strVals := make(map[string]string, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		sv, err := canonicalValue(v)
		if err != nil {
			return "", apperr.Wrap(err, apperr.KindValidation, "parameter "+k)
		}
		strVals[k] = sv
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(&b, k)
		b.WriteByte(':')
		writeJSONString(&b, strVals[k])
	}
	b.WriteByte('}')
	return b.String(), nil
}

func canonicalValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case int:
		return fmt.Sprintf("%d", x), nil
	case int64:
		return fmt.Sprintf("%d", x), nil
	case decimal.Decimal:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported parameter type %T", v)
	}
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// SigningPayload ABI-encodes (params, user, signer, nonce) into the byte
// sequence that gets hashed and signed. Deterministic for fixed inputs.
func (s *Signer) SigningPayload(params Params, nonce int64) ([]byte, error) {
	paramJSON, err := CanonicalParams(params)
	if err != nil {
		return nil, err
	}
	packed, err := signPayloadArgs.Pack(paramJSON, s.user, s.signer, big.NewInt(nonce))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindValidation, "abi encode")
	}
	return packed, nil
}

// Sign keccak-hashes the payload and produces the 65-byte recoverable
// signature, v normalized to 27/28, hex-encoded with 0x prefix.
func (s *Signer) Sign(params Params, nonce int64) (string, error) {
	payload, err := s.SigningPayload(params, nonce)
	if err != nil {
		return "", err
	}

	hash := crypto.Keccak256Hash(payload)
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindInternal, "ecdsa sign")
	}
	sig[64] += 27

	return "0x" + hex.EncodeToString(sig), nil
}

// AuthParams returns a copy of params with nonce, user, signer and
// signature merged in. The signature covers the original params only.
func (s *Signer) AuthParams(params Params) (Params, error) {
	nonce := s.Nonce()
	signature, err := s.Sign(params, nonce)
	if err != nil {
		return nil, err
	}

	out := make(Params, len(params)+4)
	for k, v := range params {
		out[k] = v
	}
	out["nonce"] = nonce
	out["user"] = s.User()
	out["signer"] = s.SignerAddress()
	out["signature"] = signature
	return out, nil
}
