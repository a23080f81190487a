/*
Package secure implements the signed and encrypted envelope exchanged
with the migasfree server. Requests are signed with the client's RSA
private key (JWS, RS256) and encrypted with the server's public key
(JWE, RSA-OAEP-256 with A256CBC-HS512); responses travel the other way
around.
*/
package secure

import (
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
	jose "gopkg.in/square/go-jose.v2"
)

// Sign serializes claims as JSON and returns a JWS token signed with
// the private key at privKeyPath.
func Sign(claims interface{}, privKeyPath string) (string, error) {
	key, err := LoadPrivateKey(privKeyPath)
	if err != nil {
		return "", errors.Wrapf(err, "loading private key from '%s'", privKeyPath)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", errors.Wrap(err, "marshaling claims")
	}

	kid, err := thumbprint(&key.PublicKey)
	if err != nil {
		return "", errors.Wrap(err, "computing key thumbprint")
	}

	opts := (&jose.SignerOptions{}).WithHeader("kid", kid)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, opts)
	if err != nil {
		return "", errors.Wrap(err, "building signer")
	}

	object, err := signer.Sign(payload)
	if err != nil {
		return "", errors.Wrap(err, "signing claims")
	}

	return object.FullSerialize(), nil
}

// Verify checks the JWS token against the public key at pubKeyPath
// and returns the signed payload.
func Verify(token string, pubKeyPath string) ([]byte, error) {
	key, err := LoadPublicKey(pubKeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "loading public key from '%s'", pubKeyPath)
	}

	object, err := jose.ParseSigned(token)
	if err != nil {
		return nil, errors.Wrap(err, "parsing signed token")
	}

	payload, err := object.Verify(key)
	if err != nil {
		return nil, errors.Wrap(err, "signature is not valid")
	}

	return payload, nil
}

// Encrypt serializes claims as JSON and encrypts them for the owner
// of the public key at pubKeyPath.
func Encrypt(claims interface{}, pubKeyPath string) (string, error) {
	key, err := LoadPublicKey(pubKeyPath)
	if err != nil {
		return "", errors.Wrapf(err, "loading public key from '%s'", pubKeyPath)
	}

	kid, err := thumbprint(key)
	if err != nil {
		return "", errors.Wrap(err, "computing key thumbprint")
	}

	opts := (&jose.EncrypterOptions{}).WithType("JWE").WithHeader("kid", kid)
	encrypter, err := jose.NewEncrypter(
		jose.A256CBC_HS512,
		jose.Recipient{Algorithm: jose.RSA_OAEP_256, Key: key},
		opts)
	if err != nil {
		return "", errors.Wrap(err, "building encrypter")
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", errors.Wrap(err, "marshaling claims")
	}

	object, err := encrypter.Encrypt(payload)
	if err != nil {
		return "", errors.Wrap(err, "encrypting claims")
	}

	return object.FullSerialize(), nil
}

// Decrypt opens the JWE token with the private key at privKeyPath.
func Decrypt(token string, privKeyPath string) ([]byte, error) {
	key, err := LoadPrivateKey(privKeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "loading private key from '%s'", privKeyPath)
	}

	object, err := jose.ParseEncrypted(token)
	if err != nil {
		return nil, errors.Wrap(err, "parsing encrypted token")
	}

	payload, err := object.Decrypt(key)
	if err != nil {
		return nil, errors.Wrap(err, "decrypting token")
	}

	return payload, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Sign string          `json:"sign"`
}

// Wrap signs data with signKeyPath and encrypts the resulting
// envelope with encryptKeyPath, producing the request body for a safe
// endpoint.
func Wrap(data interface{}, signKeyPath, encryptKeyPath string) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "marshaling data")
	}

	signature, err := Sign(data, signKeyPath)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return Encrypt(envelope{Data: raw, Sign: signature}, encryptKeyPath)
}

// Unwrap decrypts a safe endpoint response with decryptKeyPath,
// verifies the embedded signature with verifyKeyPath, and unmarshals
// the payload into out.
func Unwrap(token string, decryptKeyPath, verifyKeyPath string, out interface{}) error {
	raw, err := Decrypt(token, decryptKeyPath)
	if err != nil {
		return errors.WithStack(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Wrap(err, "unmarshaling envelope")
	}

	if _, err := Verify(env.Sign, verifyKeyPath); err != nil {
		return errors.WithStack(err)
	}

	if out == nil {
		return nil
	}

	return errors.Wrap(json.Unmarshal(env.Data, out), "unmarshaling payload")
}

// thumbprint computes the RFC 7638 key thumbprint used as the "kid"
// header, matching what the server expects.
func thumbprint(key *rsa.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: key}
	sum, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(sum), nil
}
