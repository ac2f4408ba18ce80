// internal/amm/instruction.go
package amm

import (
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// InstructionType is the leading tag byte of an AMM instruction.
type InstructionType uint8

const (
	// InstructionTypeInitialize is the AMM's initialize2.
	InstructionTypeInitialize InstructionType = 1

	// InitializeInstructionSize = 1 (tag) + 1 (nonce) + 8 (open_time) + 8 (pc) + 8 (coin)
	InitializeInstructionSize = 26
)

var (
	// ErrTruncatedInput is returned when the buffer ends before a field the tag requires.
	ErrTruncatedInput = errors.New("truncated instruction data")
	// ErrUnknownVariant is returned for a tag this codec does not know.
	ErrUnknownVariant = errors.New("unknown instruction variant")
)

// Instruction is one variant of the AMM instruction set.
type Instruction interface {
	Type() InstructionType
	MarshalWithEncoder(encoder *bin.Encoder) error
}

// InitializeInstruction opens a new AMM pool.
//
// The AMM names its two sides coin and pc. The migrating pool's quote asset
// is placed on the coin side and its base asset on the pc side, so PcAmount
// carries the base reserve and CoinAmount the quote reserve net of fees.
type InitializeInstruction struct {
	// Nonce is the bump of the AMM authority address.
	Nonce uint8
	// OpenTime is the unix timestamp after which the pool permits swaps.
	OpenTime uint64
	// PcAmount is the initial pc-side deposit (wire offset 10).
	PcAmount uint64
	// CoinAmount is the initial coin-side deposit (wire offset 18).
	CoinAmount uint64
}

// Type implements Instruction.
func (ix *InitializeInstruction) Type() InstructionType {
	return InstructionTypeInitialize
}

// Encode serializes an initialize instruction into its fixed 26-byte layout.
func (ix *InitializeInstruction) Encode() []byte {
	data := make([]byte, InitializeInstructionSize)

	data[0] = byte(InstructionTypeInitialize)
	data[1] = ix.Nonce
	binary.LittleEndian.PutUint64(data[2:10], ix.OpenTime)
	binary.LittleEndian.PutUint64(data[10:18], ix.PcAmount)
	binary.LittleEndian.PutUint64(data[18:26], ix.CoinAmount)

	return data
}

// MarshalWithEncoder writes the instruction, tag included, to encoder.
func (ix *InitializeInstruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(uint8(InstructionTypeInitialize)); err != nil {
		return err
	}
	if err := encoder.WriteUint8(ix.Nonce); err != nil {
		return err
	}
	if err := encoder.WriteUint64(ix.OpenTime, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteUint64(ix.PcAmount, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(ix.CoinAmount, binary.LittleEndian)
}

// UnmarshalWithDecoder reads the instruction body. The tag must already be consumed.
func (ix *InitializeInstruction) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if ix.Nonce, err = readUint8(decoder, "nonce"); err != nil {
		return err
	}
	if ix.OpenTime, err = readUint64(decoder, "open_time"); err != nil {
		return err
	}
	if ix.PcAmount, err = readUint64(decoder, "pc_amount"); err != nil {
		return err
	}
	if ix.CoinAmount, err = readUint64(decoder, "coin_amount"); err != nil {
		return err
	}
	return nil
}

// Encode serializes any supported instruction.
func Encode(ix Instruction) []byte {
	switch v := ix.(type) {
	case *InitializeInstruction:
		return v.Encode()
	default:
		return nil
	}
}

// Decode parses instruction data. Bytes after the last field are ignored.
func Decode(data []byte) (Instruction, error) {
	decoder := bin.NewBinDecoder(data)

	tag, err := readUint8(decoder, "tag")
	if err != nil {
		return nil, err
	}

	switch InstructionType(tag) {
	case InstructionTypeInitialize:
		ix := new(InitializeInstruction)
		if err := ix.UnmarshalWithDecoder(decoder); err != nil {
			return nil, err
		}
		return ix, nil
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownVariant, tag)
	}
}

// DecodeInitialize parses data that must hold an initialize instruction.
func DecodeInitialize(data []byte) (*InitializeInstruction, error) {
	ix, err := Decode(data)
	if err != nil {
		return nil, err
	}
	init, ok := ix.(*InitializeInstruction)
	if !ok {
		return nil, fmt.Errorf("%w: expected initialize, got tag %d", ErrUnknownVariant, ix.Type())
	}
	return init, nil
}

func readUint8(decoder *bin.Decoder, field string) (uint8, error) {
	if decoder.Remaining() < 1 {
		return 0, fmt.Errorf("%w: %s needs 1 byte, %d left", ErrTruncatedInput, field, decoder.Remaining())
	}
	return decoder.ReadUint8()
}

func readUint64(decoder *bin.Decoder, field string) (uint64, error) {
	if decoder.Remaining() < 8 {
		return 0, fmt.Errorf("%w: %s needs 8 bytes, %d left", ErrTruncatedInput, field, decoder.Remaining())
	}
	return decoder.ReadUint64(binary.LittleEndian)
}
