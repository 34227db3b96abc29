package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// GeneratedKey reports the files written by GenerateKey
type GeneratedKey struct {
	KID   string
	Files []string
}

// GenerateKey writes fresh key material for kid into dir. bits is only used for RS256.
func GenerateKey(dir string, alg Algorithm, kid string, bits int) (*GeneratedKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("key ID is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &ErrKeysDirectoryNotAccessible{Path: dir, Err: err}
	}

	switch alg {
	case HS256:
		return generateSecret(dir, kid)
	case RS256:
		return generateRSA(dir, kid, bits)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

func generateSecret(dir, kid string) (*GeneratedKey, error) {
	raw := make([]byte, 48)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	// base64 keeps the file printable; the encoded text itself is the secret
	secret := base64.RawURLEncoding.EncodeToString(raw)

	path := filepath.Join(dir, SecretFileName(kid))
	if err := writeExclusive(path, []byte(secret+"\n"), 0600); err != nil {
		return nil, err
	}
	return &GeneratedKey{KID: kid, Files: []string{path}}, nil
}

func generateRSA(dir, kid string, bits int) (*GeneratedKey, error) {
	if bits != 2048 && bits != 3072 && bits != 4096 {
		return nil, fmt.Errorf("key size must be 2048, 3072, or 4096")
	}

	privPath := filepath.Join(dir, PrivateFileName(kid))
	pubPath := filepath.Join(dir, PublicFileName(kid))
	if _, err := os.Stat(privPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, privPath)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyBytes})

	if err := writeExclusive(privPath, privPEM, 0600); err != nil {
		return nil, err
	}
	if err := writeExclusive(pubPath, pubPEM, 0644); err != nil {
		_ = os.Remove(privPath)
		return nil, err
	}

	return &GeneratedKey{KID: kid, Files: []string{privPath, pubPath}}, nil
}

func writeExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrKeyExists, path)
		}
		return fmt.Errorf("failed to create key file %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write key file %s: %w", path, err)
	}
	return f.Close()
}
