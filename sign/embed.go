package sign

import (
	"bytes"
	"encoding/hex"

	"github.com/mattetti/filebuffer"

	"github.com/digitorus/efirma-pdfsign/common"
)

// EmbedSignature writes br and the hex encoded der into the slot of buf.
// The buffer keeps its length. When der does not fit the slot nothing is
// written.
func EmbedSignature(buf *filebuffer.Buffer, slot Slot, br ByteRange, der []byte) error {
	data := buf.Buff.Bytes()
	size := len(data)

	required := hex.EncodedLen(len(der))
	reserved := slot.Capacity()
	if required > reserved {
		return common.NewError(common.ErrSignatureTooLarge,
			"signature needs %d hex characters, %d reserved, %d over", required, reserved, required-reserved)
	}

	if err := WriteByteRange(data, slot, br); err != nil {
		return err
	}

	contents := data[slot.ContentsStart:slot.ContentsEnd]
	hex.Encode(contents, der)
	for i := required; i < reserved; i++ {
		contents[i] = '0'
	}

	// Recompute from the patched bytes.
	got, gotSlot, err := CalculateByteRange(data)
	if err != nil {
		return common.WrapError(common.ErrByteRangeIntegrityViolation, err, "signature slot lost after embedding")
	}
	if got != br || gotSlot != slot || len(buf.Buff.Bytes()) != size {
		return common.NewError(common.ErrByteRangeIntegrityViolation, "byte range %v changed to %v after embedding", br, got)
	}

	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return common.NewError(common.ErrInvalidPdfHeaderAfterSigning, "signed output does not start with %%PDF")
	}
	return nil
}
