package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	commonpb "go.temporal.io/api/common/v1"
	"go.temporal.io/sdk/converter"
)

const encodingEncrypted = "binary/encrypted"

// EncryptionCodec encrypts payloads with AES-256-GCM before they reach the
// Temporal server. Checkout histories carry card input and shipping PII, so
// payloads are never stored in the clear.
type EncryptionCodec struct {
	aead cipher.AEAD
}

// NewEncryptionCodec creates a codec from a 32-byte AES-256 key.
func NewEncryptionCodec(key []byte) (*EncryptionCodec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &EncryptionCodec{aead: aead}, nil
}

// NewEncryptionDataConverter wraps the default data converter with payload
// encryption.
func NewEncryptionDataConverter(key []byte) (converter.DataConverter, error) {
	codec, err := NewEncryptionCodec(key)
	if err != nil {
		return nil, err
	}
	return converter.NewCodecDataConverter(converter.GetDefaultDataConverter(), codec), nil
}

// Encode encrypts each payload, nonce-prefixed.
func (c *EncryptionCodec) Encode(payloads []*commonpb.Payload) ([]*commonpb.Payload, error) {
	result := make([]*commonpb.Payload, len(payloads))
	for i, p := range payloads {
		data, err := p.Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}

		nonce := make([]byte, c.aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return nil, fmt.Errorf("failed to generate nonce: %w", err)
		}

		result[i] = &commonpb.Payload{
			Metadata: map[string][]byte{
				converter.MetadataEncoding: []byte(encodingEncrypted),
			},
			Data: c.aead.Seal(nonce, nonce, data, nil),
		}
	}
	return result, nil
}

// Decode decrypts payloads produced by Encode; payloads with any other
// encoding pass through untouched.
func (c *EncryptionCodec) Decode(payloads []*commonpb.Payload) ([]*commonpb.Payload, error) {
	result := make([]*commonpb.Payload, len(payloads))
	for i, p := range payloads {
		if string(p.Metadata[converter.MetadataEncoding]) != encodingEncrypted {
			result[i] = p
			continue
		}

		nonceSize := c.aead.NonceSize()
		if len(p.Data) < nonceSize {
			return nil, errors.New("encrypted payload shorter than nonce")
		}

		plain, err := c.aead.Open(nil, p.Data[:nonceSize], p.Data[nonceSize:], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt payload: %w", err)
		}

		var decoded commonpb.Payload
		if err := decoded.Unmarshal(plain); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decrypted payload: %w", err)
		}
		result[i] = &decoded
	}
	return result, nil
}
