package storage

import (
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cvctoken/cvct/types"
)

// RecordKind identifies an entity record family and doubles as its storage
// prefix. It is carried inside by-reference computation arguments and
// callback targets.
type RecordKind string

const (
	RecordMint    RecordKind = "m/"
	RecordAccount RecordKind = "a/"
	RecordVault   RecordKind = "v/"
)

// Byte offsets of every field inside the fixed-size entity records. The
// scalar field offsets are a stable contract: the asynchronous request
// builder points the cluster at them and callback commits overwrite them in
// place.
const (
	sizeAddress = common.AddressLength // 20
	sizeID      = 32

	MintAuthorityOffset    = 0
	MintBackingAssetOffset = MintAuthorityOffset + sizeAddress
	MintDecimalsOffset     = MintBackingAssetOffset + sizeID
	MintTotalSupplyOffset  = MintDecimalsOffset + 1
	SizeMintRecord         = MintTotalSupplyOffset + types.SizeEncryptedScalar

	VaultMintOffset         = 0
	VaultBackingAssetOffset = VaultMintOffset + sizeID
	VaultCustodyOffset      = VaultBackingAssetOffset + sizeID
	VaultTotalLockedOffset  = VaultCustodyOffset + sizeID
	SizeVaultRecord         = VaultTotalLockedOffset + types.SizeEncryptedScalar

	AccountOwnerOffset   = 0
	AccountMintOffset    = AccountOwnerOffset + sizeAddress
	AccountBalanceOffset = AccountMintOffset + sizeID
	SizeAccountRecord    = AccountBalanceOffset + types.SizeEncryptedScalar
)

// Mint is the public metadata of a confidential token plus its encrypted
// total supply. The supply is never stored or read in plaintext.
type Mint struct {
	ID           types.HexBytes
	Authority    common.Address
	BackingAsset types.HexBytes
	Decimals     uint8
	TotalSupply  *types.EncryptedScalar
}

// Vault locks the backing asset of a Mint. Exactly one Vault exists per Mint
// and its custody account always holds the mint's backing asset.
type Vault struct {
	ID             types.HexBytes
	Mint           types.HexBytes
	BackingAsset   types.HexBytes
	CustodyAccount types.HexBytes
	TotalLocked    *types.EncryptedScalar
}

// Account holds the encrypted balance of an owner for a single Mint.
type Account struct {
	ID      types.HexBytes
	Owner   common.Address
	Mint    types.HexBytes
	Balance *types.EncryptedScalar
}

// Record keys are derived from seeds the way the original entities were
// addressed: a hash over a kind tag and the parent references.

func DeriveMintID(authority common.Address) types.HexBytes {
	return deriveID("cvct_mint", authority.Bytes())
}

func DeriveVaultID(mintID types.HexBytes) types.HexBytes {
	return deriveID("vault", mintID)
}

func DeriveAccountID(mintID types.HexBytes, owner common.Address) types.HexBytes {
	return deriveID("cvct_account", mintID, owner.Bytes())
}

// DeriveCustodyID names the custody account holding a vault's locked backing
// asset.
func DeriveCustodyID(vaultID types.HexBytes) types.HexBytes {
	return deriveID("vault_custody", vaultID)
}

func deriveID(tag string, seeds ...[]byte) types.HexBytes {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, s := range seeds {
		h.Write(s)
	}
	return h.Sum(nil)
}

func (m *Mint) Serialize() []byte {
	buf := make([]byte, SizeMintRecord)
	copy(buf[MintAuthorityOffset:], m.Authority.Bytes())
	copy(buf[MintBackingAssetOffset:], m.BackingAsset)
	buf[MintDecimalsOffset] = m.Decimals
	copy(buf[MintTotalSupplyOffset:], m.TotalSupply.Serialize())
	return buf
}

func (m *Mint) Deserialize(id types.HexBytes, data []byte) error {
	if len(data) != SizeMintRecord {
		return fmt.Errorf("invalid mint record length: got %d, expected %d", len(data), SizeMintRecord)
	}
	m.ID = id
	m.Authority = common.BytesToAddress(data[MintAuthorityOffset : MintAuthorityOffset+sizeAddress])
	m.BackingAsset = append(types.HexBytes{}, data[MintBackingAssetOffset:MintBackingAssetOffset+sizeID]...)
	m.Decimals = data[MintDecimalsOffset]
	m.TotalSupply = new(types.EncryptedScalar)
	return m.TotalSupply.Deserialize(data[MintTotalSupplyOffset:])
}

func (v *Vault) Serialize() []byte {
	buf := make([]byte, SizeVaultRecord)
	copy(buf[VaultMintOffset:], v.Mint)
	copy(buf[VaultBackingAssetOffset:], v.BackingAsset)
	copy(buf[VaultCustodyOffset:], v.CustodyAccount)
	copy(buf[VaultTotalLockedOffset:], v.TotalLocked.Serialize())
	return buf
}

func (v *Vault) Deserialize(id types.HexBytes, data []byte) error {
	if len(data) != SizeVaultRecord {
		return fmt.Errorf("invalid vault record length: got %d, expected %d", len(data), SizeVaultRecord)
	}
	v.ID = id
	v.Mint = append(types.HexBytes{}, data[VaultMintOffset:VaultMintOffset+sizeID]...)
	v.BackingAsset = append(types.HexBytes{}, data[VaultBackingAssetOffset:VaultBackingAssetOffset+sizeID]...)
	v.CustodyAccount = append(types.HexBytes{}, data[VaultCustodyOffset:VaultCustodyOffset+sizeID]...)
	v.TotalLocked = new(types.EncryptedScalar)
	return v.TotalLocked.Deserialize(data[VaultTotalLockedOffset:])
}

func (a *Account) Serialize() []byte {
	buf := make([]byte, SizeAccountRecord)
	copy(buf[AccountOwnerOffset:], a.Owner.Bytes())
	copy(buf[AccountMintOffset:], a.Mint)
	copy(buf[AccountBalanceOffset:], a.Balance.Serialize())
	return buf
}

func (a *Account) Deserialize(id types.HexBytes, data []byte) error {
	if len(data) != SizeAccountRecord {
		return fmt.Errorf("invalid account record length: got %d, expected %d", len(data), SizeAccountRecord)
	}
	a.ID = id
	a.Owner = common.BytesToAddress(data[AccountOwnerOffset : AccountOwnerOffset+sizeAddress])
	a.Mint = append(types.HexBytes{}, data[AccountMintOffset:AccountMintOffset+sizeID]...)
	a.Balance = new(types.EncryptedScalar)
	return a.Balance.Deserialize(data[AccountBalanceOffset:])
}

// SetMint stores the mint record.
func (s *Storage) SetMint(m *Mint) error {
	return s.setArtifact(mintPrefix, m.ID, m.Serialize())
}

// Mint loads a mint record by id.
func (s *Storage) Mint(id types.HexBytes) (*Mint, error) {
	data, err := s.getArtifact(mintPrefix, id)
	if err != nil {
		return nil, err
	}
	m := new(Mint)
	if err := m.Deserialize(id, data); err != nil {
		return nil, err
	}
	return m, nil
}

// SetVault stores the vault record.
func (s *Storage) SetVault(v *Vault) error {
	return s.setArtifact(vaultPrefix, v.ID, v.Serialize())
}

// Vault loads a vault record by id.
func (s *Storage) Vault(id types.HexBytes) (*Vault, error) {
	data, err := s.getArtifact(vaultPrefix, id)
	if err != nil {
		return nil, err
	}
	v := new(Vault)
	if err := v.Deserialize(id, data); err != nil {
		return nil, err
	}
	return v, nil
}

// SetAccount stores the account record.
func (s *Storage) SetAccount(a *Account) error {
	return s.setArtifact(accountPrefix, a.ID, a.Serialize())
}

// Account loads an account record by id.
func (s *Storage) Account(id types.HexBytes) (*Account, error) {
	data, err := s.getArtifact(accountPrefix, id)
	if err != nil {
		return nil, err
	}
	a := new(Account)
	if err := a.Deserialize(id, data); err != nil {
		return nil, err
	}
	return a, nil
}

func prefixFor(kind RecordKind) ([]byte, error) {
	switch kind {
	case RecordMint:
		return mintPrefix, nil
	case RecordAccount:
		return accountPrefix, nil
	case RecordVault:
		return vaultPrefix, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

// ReadScalarField reads the encrypted scalar stored at a byte offset inside
// an entity record. This is how the cluster resolves by-reference ciphertext
// arguments without the caller re-uploading ciphertext bytes.
func (s *Storage) ReadScalarField(kind RecordKind, key types.HexBytes, offset int) (*types.EncryptedScalar, error) {
	prefix, err := prefixFor(kind)
	if err != nil {
		return nil, err
	}
	data, err := s.getArtifact(prefix, key)
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset+types.SizeEncryptedScalar > len(data) {
		return nil, fmt.Errorf("scalar offset %d out of range for %d-byte record", offset, len(data))
	}
	scalar := new(types.EncryptedScalar)
	if err := scalar.Deserialize(data[offset : offset+types.SizeEncryptedScalar]); err != nil {
		return nil, err
	}
	return scalar, nil
}

// WriteScalarField overwrites the encrypted scalar at a byte offset inside an
// entity record. The write is a blind overwrite, not a compare-and-swap: when
// two computation jobs target the same field, the later commit wins and the
// earlier result is lost. Callers must serialize updates to a given field.
func (s *Storage) WriteScalarField(kind RecordKind, key types.HexBytes, offset int, scalar *types.EncryptedScalar) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	prefix, err := prefixFor(kind)
	if err != nil {
		return err
	}
	data, err := s.getArtifact(prefix, key)
	if err != nil {
		return err
	}
	if offset < 0 || offset+types.SizeEncryptedScalar > len(data) {
		return fmt.Errorf("scalar offset %d out of range for %d-byte record", offset, len(data))
	}
	patched := append([]byte{}, data...)
	copy(patched[offset:], scalar.Serialize())
	return s.setArtifact(prefix, key, patched)
}
