package keys

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Anvoria/authgate/internal/config"
)

const (
	secretPrefix  = "secret-"
	secretExt     = ".key"
	privatePrefix = "private-"
	publicPrefix  = "public-"
	pemExt        = ".pem"
)

// SecretFileName returns the file name holding the HMAC secret for kid
func SecretFileName(kid string) string { return secretPrefix + kid + secretExt }

// PrivateFileName returns the file name holding the RSA private key for kid
func PrivateFileName(kid string) string { return privatePrefix + kid + pemExt }

// PublicFileName returns the file name holding the RSA public key for kid
func PublicFileName(kid string) string { return publicPrefix + kid + pemExt }

// LoadKeyStore builds the initial key store from configuration.
// For HS256, secrets supplied through the environment take precedence over files.
func LoadKeyStore(cfg config.AuthConfig) (*KeyStore, error) {
	alg, err := ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	current, err := loadConfigured(cfg.KeysPath, alg, cfg.CurrentKID, cfg.CurrentSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to load current key: %w", err)
	}

	var previous *SigningKey
	if cfg.PreviousKID != "" {
		previous, err = loadConfigured(cfg.KeysPath, alg, cfg.PreviousKID, cfg.PreviousSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to load previous key: %w", err)
		}
	}

	return NewKeyStore(current, previous)
}

func loadConfigured(dir string, alg Algorithm, kid, secret string) (*SigningKey, error) {
	if alg == HS256 && secret != "" {
		return NewHMACKey(kid, []byte(secret))
	}
	return LoadKey(dir, alg, kid)
}

// LoadKey reads the key material for kid from the keys directory
func LoadKey(dir string, alg Algorithm, kid string) (*SigningKey, error) {
	if kid == "" || strings.ContainsAny(kid, `/\`) || kid == "." || kid == ".." {
		return nil, fmt.Errorf("%w: invalid key id %q", ErrUnknownKey, kid)
	}
	if err := checkDir(dir); err != nil {
		return nil, err
	}

	switch alg {
	case HS256:
		secret, err := readKeyFile(dir, SecretFileName(kid))
		if err != nil {
			return nil, err
		}
		return NewHMACKey(kid, bytes.TrimRight(secret, "\r\n"))
	case RS256:
		return loadRSA(dir, kid)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

func loadRSA(dir, kid string) (*SigningKey, error) {
	privName := PrivateFileName(kid)
	privData, err := readKeyFile(dir, privName)
	switch {
	case err == nil:
		priv, err := parseRSAPrivateKey(privName, privData)
		if err != nil {
			return nil, err
		}
		return NewRSAKey(kid, priv)
	case !errors.Is(err, ErrUnknownKey):
		return nil, err
	}

	// Verify-only deployments ship the public half alone.
	pubName := PublicFileName(kid)
	pubData, err := readKeyFile(dir, pubName)
	if err != nil {
		return nil, err
	}
	pub, err := parseRSAPublicKey(pubName, pubData)
	if err != nil {
		return nil, err
	}
	return NewRSAPublicKey(kid, pub)
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ErrKeysDirectoryNotAccessible{Path: path, Err: err}
	}
	if !info.IsDir() {
		return &ErrKeysPathNotDirectory{Path: path}
	}
	return nil
}

func readKeyFile(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, name)
		}
		return nil, &ErrFailedToReadKeyFile{FileName: name, Err: err}
	}
	return data, nil
}

func parseRSAPrivateKey(fileName string, data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &ErrFailedToDecodePEM{FileName: fileName}
	}

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return priv, nil
	}

	pkcs8Key, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err2 != nil {
		return nil, &ErrFailedToParseKey{FileName: fileName, Err: err}
	}
	rsaKey, ok := pkcs8Key.(*rsa.PrivateKey)
	if !ok {
		return nil, &ErrFailedToParseKey{FileName: fileName, Err: errors.New("key is not RSA")}
	}
	return rsaKey, nil
}

func parseRSAPublicKey(fileName string, data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &ErrFailedToDecodePEM{FileName: fileName}
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, &ErrFailedToParseKey{FileName: fileName, Err: err}
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, &ErrFailedToParseKey{FileName: fileName, Err: errors.New("key is not RSA")}
	}
	return rsaKey, nil
}

// KeyFile describes key material found in a keys directory
type KeyFile struct {
	KID        string
	Algorithm  Algorithm
	HasPrivate bool
}

// ListKeys scans the keys directory for key material, sorted by key ID
func ListKeys(dir string) ([]KeyFile, error) {
	if err := checkDir(dir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ErrFailedToReadKeyFile{FileName: dir, Err: err}
	}

	found := make(map[string]*KeyFile)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		var kid string
		var alg Algorithm
		private := false
		switch {
		case strings.HasPrefix(name, secretPrefix) && strings.HasSuffix(name, secretExt):
			kid = strings.TrimSuffix(strings.TrimPrefix(name, secretPrefix), secretExt)
			alg, private = HS256, true
		case strings.HasPrefix(name, privatePrefix) && strings.HasSuffix(name, pemExt):
			kid = strings.TrimSuffix(strings.TrimPrefix(name, privatePrefix), pemExt)
			alg, private = RS256, true
		case strings.HasPrefix(name, publicPrefix) && strings.HasSuffix(name, pemExt):
			kid = strings.TrimSuffix(strings.TrimPrefix(name, publicPrefix), pemExt)
			alg = RS256
		default:
			continue
		}
		if kid == "" {
			continue
		}

		kf, ok := found[kid]
		if !ok {
			kf = &KeyFile{KID: kid, Algorithm: alg}
			found[kid] = kf
		}
		kf.HasPrivate = kf.HasPrivate || private
	}

	out := make([]KeyFile, 0, len(found))
	for _, kf := range found {
		out = append(out, *kf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KID < out[j].KID })
	return out, nil
}
