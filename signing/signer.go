package signing

import (
	"fmt"
	"os"

	"github.com/sarchlab/vaultsim/emu"
	"github.com/sarchlab/vaultsim/vault"
)

// SignResult describes a signing run.
type SignResult struct {
	Hash      Result
	Signature vault.Signature
}

// VerifyResult describes a verification. An invalid signature is reported
// here, not as an error.
type VerifyResult struct {
	Valid        bool
	Signature    vault.Signature
	Recovered    vault.Digest
	Computed     vault.Digest
	DocumentSize int
}

// Signer produces and checks signed artifacts: the document bytes followed
// by the four signature words, little-endian.
type Signer struct {
	vault  *vault.Vault
	key    int
	hasher *Hasher
}

// NewSigner creates a Signer using the given key slot. A nil hasher selects
// NewHasher().
func NewSigner(v *vault.Vault, keyIndex int, hasher *Hasher) *Signer {
	if hasher == nil {
		hasher = NewHasher()
	}

	return &Signer{
		vault:  v,
		key:    keyIndex,
		hasher: hasher,
	}
}

// Sign hashes doc and returns the signed artifact.
func (s *Signer) Sign(doc []byte) ([]byte, SignResult, error) {
	res, err := s.hasher.Hash(doc)
	if err != nil {
		return nil, SignResult{}, err
	}

	sig, err := s.vault.Sign(s.key, res.Digest)
	if err != nil {
		return nil, SignResult{}, err
	}

	artifact := make([]byte, 0, len(doc)+vault.SignatureSize)
	artifact = append(artifact, doc...)
	artifact = append(artifact, sig.Bytes()...)

	return artifact, SignResult{Hash: res, Signature: sig}, nil
}

// SplitArtifact separates a signed artifact into document and signature.
func SplitArtifact(artifact []byte) ([]byte, vault.Signature, error) {
	if len(artifact) < vault.SignatureSize {
		return nil, vault.Signature{}, fmt.Errorf("%w: artifact is %d bytes, the signature alone is %d",
			emu.ErrInsufficientData, len(artifact), vault.SignatureSize)
	}

	n := len(artifact) - vault.SignatureSize
	sig, err := vault.SignatureFromBytes(artifact[n:])
	if err != nil {
		return nil, vault.Signature{}, err
	}

	return artifact[:n], sig, nil
}

// Verify checks a signed artifact.
func (s *Signer) Verify(artifact []byte) (VerifyResult, error) {
	doc, sig, err := SplitArtifact(artifact)
	if err != nil {
		return VerifyResult{}, err
	}

	recovered, err := s.vault.Invert(s.key, sig)
	if err != nil {
		return VerifyResult{}, err
	}

	res, err := s.hasher.Hash(doc)
	if err != nil {
		return VerifyResult{}, err
	}

	return VerifyResult{
		Valid:        recovered == res.Digest,
		Signature:    sig,
		Recovered:    recovered,
		Computed:     res.Digest,
		DocumentSize: len(doc),
	}, nil
}

// SignFile signs the file at in and writes the artifact to out.
func (s *Signer) SignFile(in, out string) (SignResult, error) {
	doc, err := os.ReadFile(in)
	if err != nil {
		return SignResult{}, err
	}

	artifact, res, err := s.Sign(doc)
	if err != nil {
		return SignResult{}, err
	}

	if err := os.WriteFile(out, artifact, 0o644); err != nil {
		return SignResult{}, err
	}

	return res, nil
}

// VerifyFile checks the signed artifact at path.
func (s *Signer) VerifyFile(path string) (VerifyResult, error) {
	artifact, err := os.ReadFile(path)
	if err != nil {
		return VerifyResult{}, err
	}

	return s.Verify(artifact)
}
