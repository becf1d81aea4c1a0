// Package signedenvelope implements the signed key/file envelope
// format (component K): a two-line JSON file (a header naming the
// kind, then a body), public/private key generation, signing and
// verification, and the trusted-key table consulted by the upgrade
// channel.
//
// The original's FIPS-205/SLH-DSA primitive is named an out-of-scope
// external collaborator in SPEC_FULL.md §1; no such library exists
// anywhere in the example pack. This build substitutes
// golang.org/x/crypto/ed25519 — a real dependency already present
// (indirectly) in this tree and directly in the go-git example repo —
// behind the same envelope shape. See DESIGN.md for the justification.
//
// Grounded on original_source/src/installation/app_signature.rs.
package signedenvelope

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/hexutil"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/timeutil"
)

const envelopeVersion = 1

// Kind discriminates the three envelope bodies.
type Kind string

const (
	KindPublicKey  Kind = "PublicKey"
	KindPrivateKey Kind = "PrivateKey"
	KindSignature  Kind = "Signature"
)

type header struct {
	AppSignatureKeyVersion int  `json:"app_signature_key_version"`
	Kind                   Kind `json:"kind"`
}

// FileMetadata is embedded in every key and signature body.
type FileMetadata struct {
	Owner   string `json:"owner"`
	Creator string `json:"creator"` // "user@host"
	Birth   string `json:"birth"`   // RFC2822
}

func newMetadata(owner string) FileMetadata {
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	return FileMetadata{
		Owner:   owner,
		Creator: fmt.Sprintf("%s@%s", user, host),
		Birth:   timeutil.RFC2822(time.Now()),
	}
}

// KeyPair is a freshly generated or loaded ed25519 key pair plus its
// envelope metadata.
type KeyPair struct {
	Metadata   FileMetadata
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a new key pair owned by owner.
func GenerateKeyPair(owner string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", err)
	}
	return &KeyPair{Metadata: newMetadata(owner), PublicKey: pub, PrivateKey: priv}, nil
}

type publicKeyBody struct {
	Metadata  FileMetadata `json:"metadata"`
	PublicKey string       `json:"public_key"`
}

type privateKeyBody struct {
	Metadata   FileMetadata `json:"metadata"`
	PrivateKey string       `json:"private_key"`
}

type signatureBody struct {
	Metadata  FileMetadata `json:"metadata"`
	PublicKey string       `json:"public_key"`
	Signature string       `json:"signature"`
}

// File suffixes and permissions per SPEC_FULL.md §6.
const (
	PublicKeySuffix  = ".pub"
	PrivateKeySuffix = ".priv"
	SignatureSuffix  = ".sig"

	publicKeyPerm  os.FileMode = 0o444
	privateKeyPerm os.FileMode = 0o400
	signaturePerm  os.FileMode = 0o444
)

func writeEnvelope(path string, perm os.FileMode, kind Kind, body any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(header{AppSignatureKeyVersion: envelopeVersion, Kind: kind}); err != nil {
		return fmt.Errorf("encoding envelope header: %w", err)
	}
	if err := enc.Encode(body); err != nil {
		return fmt.Errorf("encoding envelope body: %w", err)
	}
	// Remove any pre-existing file first: private key files are 0400
	// and a plain WriteFile would fail to overwrite under a stricter
	// umask-derived mode on some platforms.
	_ = os.Remove(path)
	if err := os.WriteFile(path, buf.Bytes(), perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Chmod(path, perm)
}

func readEnvelope(path string, wantKind Kind, body any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	headerLine, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading header line of %s: %w", path, err)
	}
	var h header
	if err := json.Unmarshal([]byte(headerLine), &h); err != nil {
		return fmt.Errorf("parsing header line of %s: %w", path, err)
	}
	if h.AppSignatureKeyVersion != envelopeVersion {
		return fmt.Errorf("%s: unsupported app_signature_key_version %d", path, h.AppSignatureKeyVersion)
	}
	if h.Kind != wantKind {
		return fmt.Errorf("%s: expected envelope kind %s, got %s", path, wantKind, h.Kind)
	}

	bodyLine, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading body line of %s: %w", path, err)
	}
	if err := json.Unmarshal(bytes.TrimSpace(bodyLine), body); err != nil {
		return fmt.Errorf("parsing body of %s: %w", path, err)
	}
	return nil
}

// SavePublicKey writes path+PublicKeySuffix.
func (k *KeyPair) SavePublicKey(basePath string) error {
	body := publicKeyBody{Metadata: k.Metadata, PublicKey: hexutil.Encode(k.PublicKey)}
	return writeEnvelope(basePath+PublicKeySuffix, publicKeyPerm, KindPublicKey, body)
}

// SavePrivateKey writes path+PrivateKeySuffix.
func (k *KeyPair) SavePrivateKey(basePath string) error {
	body := privateKeyBody{Metadata: k.Metadata, PrivateKey: hexutil.Encode(k.PrivateKey)}
	return writeEnvelope(basePath+PrivateKeySuffix, privateKeyPerm, KindPrivateKey, body)
}

// LoadPublicKey reads a .pub envelope.
func LoadPublicKey(path string) (ed25519.PublicKey, FileMetadata, error) {
	var body publicKeyBody
	if err := readEnvelope(path, KindPublicKey, &body); err != nil {
		return nil, FileMetadata{}, err
	}
	pub, err := hexutil.Decode("public_key", body.PublicKey)
	if err != nil {
		return nil, FileMetadata{}, err
	}
	return ed25519.PublicKey(pub), body.Metadata, nil
}

// LoadPrivateKey reads a .priv envelope.
func LoadPrivateKey(path string) (ed25519.PrivateKey, FileMetadata, error) {
	var body privateKeyBody
	if err := readEnvelope(path, KindPrivateKey, &body); err != nil {
		return nil, FileMetadata{}, err
	}
	priv, err := hexutil.Decode("private_key", body.PrivateKey)
	if err != nil {
		return nil, FileMetadata{}, err
	}
	return ed25519.PrivateKey(priv), body.Metadata, nil
}

// Sign produces a detached signature envelope for content, signed by
// priv, carrying pub for verification.
func Sign(priv ed25519.PrivateKey, pub ed25519.PublicKey, owner string, content []byte) signatureBody {
	sig := ed25519.Sign(priv, content)
	return signatureBody{
		Metadata:  newMetadata(owner),
		PublicKey: hexutil.Encode(pub),
		Signature: hexutil.Encode(sig),
	}
}

// SaveSignature writes a previously computed signature to
// basePath+SignatureSuffix.
func SaveSignature(basePath string, sig signatureBody) error {
	return writeEnvelope(basePath+SignatureSuffix, signaturePerm, KindSignature, sig)
}

// SignToFile signs content and writes the envelope in one step.
func SignToFile(basePath string, priv ed25519.PrivateKey, pub ed25519.PublicKey, owner string, content []byte) error {
	return SaveSignature(basePath, Sign(priv, pub, owner, content))
}

// LoadSignature reads a .sig envelope, returning the embedded public
// key (as raw bytes, for the caller to check against a trusted-key
// table) and signature bytes.
func LoadSignature(path string) (pub ed25519.PublicKey, sig []byte, meta FileMetadata, err error) {
	var body signatureBody
	if err = readEnvelope(path, KindSignature, &body); err != nil {
		return nil, nil, FileMetadata{}, err
	}
	pubBytes, err := hexutil.Decode("public_key", body.PublicKey)
	if err != nil {
		return nil, nil, FileMetadata{}, err
	}
	sigBytes, err := hexutil.Decode("signature", body.Signature)
	if err != nil {
		return nil, nil, FileMetadata{}, err
	}
	return ed25519.PublicKey(pubBytes), sigBytes, body.Metadata, nil
}

// Verify reports whether sig is a valid ed25519 signature of content
// under pub.
func Verify(pub ed25519.PublicKey, content, sig []byte) bool {
	return ed25519.Verify(pub, content, sig)
}

// Fingerprint returns the hex-encoded raw public key, used as the
// "signer's public key as a fingerprint" the spec's data model names.
func Fingerprint(pub ed25519.PublicKey) string {
	return hexutil.Encode(pub)
}
