// internal/amm/instruction_test.go
package amm

import (
	"bytes"
	"math"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeInstruction_EncodeLayout(t *testing.T) {
	ix := &InitializeInstruction{
		Nonce:      254,
		OpenTime:   1_700_000_000,
		PcAmount:   500_000_000,
		CoinAmount: 990_000_000,
	}

	data := ix.Encode()
	require.Len(t, data, InitializeInstructionSize)

	expected := []byte{
		0x01,                                           // tag
		0xfe,                                           // nonce
		0x00, 0xf1, 0x53, 0x65, 0x00, 0x00, 0x00, 0x00, // open_time
		0x00, 0x65, 0xcd, 0x1d, 0x00, 0x00, 0x00, 0x00, // pc amount
		0x80, 0x33, 0x02, 0x3b, 0x00, 0x00, 0x00, 0x00, // coin amount
	}
	assert.Equal(t, expected, data)
}

func TestInitializeInstruction_EncoderMatchesEncode(t *testing.T) {
	ix := &InitializeInstruction{Nonce: 7, OpenTime: 42, PcAmount: math.MaxUint64, CoinAmount: 1}

	buf := new(bytes.Buffer)
	require.NoError(t, ix.MarshalWithEncoder(bin.NewBinEncoder(buf)))

	assert.Equal(t, ix.Encode(), buf.Bytes())
	assert.Equal(t, ix.Encode(), Encode(ix))
}

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ix   InitializeInstruction
	}{
		{"zero", InitializeInstruction{}},
		{"typical", InitializeInstruction{Nonce: 253, OpenTime: 1_700_000_000, PcAmount: 500_000_000, CoinAmount: 990_000_000}},
		{"max", InitializeInstruction{Nonce: math.MaxUint8, OpenTime: math.MaxUint64, PcAmount: math.MaxUint64, CoinAmount: math.MaxUint64}},
		{"mixed", InitializeInstruction{Nonce: 1, OpenTime: 1 << 63, PcAmount: 0, CoinAmount: 0x0102030405060708}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(Encode(&tt.ix))
			require.NoError(t, err)
			assert.Equal(t, &tt.ix, decoded)
			assert.Equal(t, InstructionTypeInitialize, decoded.Type())
		})
	}
}

func TestDecode_TruncatedInput(t *testing.T) {
	full := (&InitializeInstruction{Nonce: 1, OpenTime: 2, PcAmount: 3, CoinAmount: 4}).Encode()

	for n := 0; n < InitializeInstructionSize; n++ {
		_, err := Decode(full[:n])
		assert.ErrorIs(t, err, ErrTruncatedInput, "length %d", n)
	}
}

func TestDecode_UnknownVariant(t *testing.T) {
	for _, tag := range []byte{0, 2, 9, 255} {
		data := make([]byte, InitializeInstructionSize)
		data[0] = tag

		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrUnknownVariant, "tag %d", tag)
	}

	// Unknown tag wins over length: nothing after the tag is read.
	_, err := Decode([]byte{3})
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestDecode_IgnoresTrailingBytes(t *testing.T) {
	ix := &InitializeInstruction{Nonce: 9, OpenTime: 10, PcAmount: 11, CoinAmount: 12}
	data := append(ix.Encode(), 0xde, 0xad, 0xbe, 0xef)

	decoded, err := DecodeInitialize(data)
	require.NoError(t, err)
	assert.Equal(t, ix, decoded)
}

func TestEncode_UnsupportedInstruction(t *testing.T) {
	assert.Nil(t, Encode(nil))
}
