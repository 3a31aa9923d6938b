package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"
	"go.temporal.io/sdk/converter"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0xa7}, 32)
}

func TestEncryptionCodec_RoundTrip(t *testing.T) {
	codec, err := NewEncryptionCodec(testKey())
	require.NoError(t, err)

	original := &commonpb.Payload{
		Metadata: map[string][]byte{
			converter.MetadataEncoding: []byte("json/plain"),
		},
		Data: []byte(`{"card_number":"4242424242424242"}`),
	}

	encoded, err := codec.Encode([]*commonpb.Payload{original})
	require.NoError(t, err)
	require.Len(t, encoded, 1)
	assert.Equal(t, encodingEncrypted, string(encoded[0].Metadata[converter.MetadataEncoding]))
	assert.NotContains(t, string(encoded[0].Data), "4242424242424242")

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, original.Metadata, decoded[0].Metadata)
	assert.Equal(t, original.Data, decoded[0].Data)
}

func TestEncryptionCodec_DecodePassesThroughPlainPayloads(t *testing.T) {
	codec, err := NewEncryptionCodec(testKey())
	require.NoError(t, err)

	plain := &commonpb.Payload{
		Metadata: map[string][]byte{
			converter.MetadataEncoding: []byte("json/plain"),
		},
		Data: []byte(`"hello"`),
	}

	decoded, err := codec.Decode([]*commonpb.Payload{plain})
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Same(t, plain, decoded[0])
}

func TestEncryptionCodec_RejectsWrongKeySize(t *testing.T) {
	_, err := NewEncryptionCodec([]byte("too short"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestEncryptionCodec_DecodeRejectsTamperedPayload(t *testing.T) {
	codec, err := NewEncryptionCodec(testKey())
	require.NoError(t, err)

	encoded, err := codec.Encode([]*commonpb.Payload{{Data: []byte("secret")}})
	require.NoError(t, err)

	encoded[0].Data[len(encoded[0].Data)-1] ^= 0xff

	_, err = codec.Decode(encoded)
	assert.Error(t, err)
}

func TestEncryptionDataConverter_RoundTripsValues(t *testing.T) {
	dc, err := NewEncryptionDataConverter(testKey())
	require.NoError(t, err)

	payload, err := dc.ToPayload(map[string]string{"order_id": "55"})
	require.NoError(t, err)
	assert.Equal(t, encodingEncrypted, string(payload.Metadata[converter.MetadataEncoding]))

	var out map[string]string
	require.NoError(t, dc.FromPayload(payload, &out))
	assert.Equal(t, "55", out["order_id"])
}
