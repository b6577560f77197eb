package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestLoadPEM_InlineWithEscapedNewlines(t *testing.T) {
	escaped := strings.ReplaceAll(testPrivateKeyPEM, "\n", `\n`)
	b, err := LoadPEM(escaped)
	if err != nil {
		t.Fatalf("LoadPEM: %v", err)
	}
	if string(b) != testPrivateKeyPEM {
		t.Error("LoadPEM did not expand literal \\n sequences")
	}
}

func TestLoadPEM_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte(testPrivateKeyPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ParsePrivateKey(path); err != nil {
		t.Fatalf("ParsePrivateKey(path): %v", err)
	}
}

func TestLoadPEM_Empty(t *testing.T) {
	if _, err := LoadPEM("   "); err != ErrInvalidKey {
		t.Errorf("LoadPEM blank: want ErrInvalidKey, got %v", err)
	}
}

func TestLoadKeyPair_DerivesPublicKey(t *testing.T) {
	signer, pub, err := LoadKeyPair(testPrivateKeyPEM, "")
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	if signer == nil || pub == nil {
		t.Fatal("LoadKeyPair returned nil key")
	}
	m, err := SigningMethodFor(pub)
	if err != nil {
		t.Fatalf("SigningMethodFor: %v", err)
	}
	if m != jwt.SigningMethodRS256 {
		t.Errorf("method = %v, want RS256", m.Alg())
	}
}

func TestLoadKeyPair_Mismatch(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&ecKey.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	if _, _, err := LoadKeyPair(testPrivateKeyPEM, pubPEM); err != ErrInvalidKey {
		t.Errorf("LoadKeyPair mismatch: want ErrInvalidKey, got %v", err)
	}
}

func TestParsePrivateKey_ECDSA(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(ecKey)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}
	privPEM := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	signer, pub, err := LoadKeyPair(privPEM, "")
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	p, err := NewTokenProvider(signer, pub, "iss", "aud", 0)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	if p.method != jwt.SigningMethodES256 {
		t.Errorf("method = %v, want ES256", p.method.Alg())
	}
}

func TestParsePrivateKey_UnknownBlock(t *testing.T) {
	bad := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("x")}))
	if _, err := ParsePrivateKey(bad); err != ErrInvalidKey {
		t.Errorf("ParsePrivateKey: want ErrInvalidKey, got %v", err)
	}
}
