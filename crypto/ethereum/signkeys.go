// Package ethereum provides secp256k1 signing keys with Ethereum-style
// address derivation and message signatures. The confidential-compute cluster
// signs its computation outputs with these keys, and the ledger callback
// handler verifies them against the cluster's registered address.
package ethereum

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size in bytes of an ECDSA signature (r|s|v).
const SignatureLength = 65

// SignKeys holds an ECDSA key pair.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an empty SignKeys. Use Generate or AddHexKey to fill it.
func NewSignKeys() *SignKeys {
	return new(SignKeys)
}

// Generate creates a fresh random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private key from its hex representation.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(trimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key as hex strings.
func (k *SignKeys) HexString() (string, string) {
	pubHex := fmt.Sprintf("%x", ethcrypto.CompressPubkey(&k.Public))
	privHex := fmt.Sprintf("%x", ethcrypto.FromECDSA(&k.Private))
	return pubHex, privHex
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address derived from the public key.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed string form of Address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs a message using the Ethereum personal-message prefix.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(Hash(message), &k.Private)
}

// Hash returns the keccak256 hash of data with the Ethereum signed-message
// prefix applied.
func Hash(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return ethcrypto.Keccak256([]byte(prefix), data)
}

// AddrFromPublicKey derives the address of a compressed public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	key, err := ethcrypto.DecompressPubkey(pub)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*key), nil
}

// AddrFromSignature recovers the signer address of a prefixed-message signature.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	pub, err := ethcrypto.SigToPub(Hash(message), signature)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
