package transport

import (
	"crypto/aes"
)

// headerProtectionMask computes the 5-byte mask RFC9001-style header
// protection XORs into the first byte and packet number field, keyed
// off a 16-byte sample of the packet's (already encrypted) payload.
func headerProtectionMask(hpKey, sample []byte) ([]byte, *Error) {
	if len(sample) < 16 {
		return nil, newError(FrameEncodingError, "header protection sample too short")
	}
	block, err := aes.NewCipher(hpKey)
	if err != nil {
		return nil, newError(CryptoError, err.Error())
	}
	out := make([]byte, aes.BlockSize)
	block.Encrypt(out, sample[:16])
	return out[:5], nil
}

// applyHeaderProtection XORs the mask into the packet, given the
// offset of the first byte and the (protected) packet number field's
// offset and length. long reports whether this is a long header,
// which masks only the low 4 bits of the first byte (short headers
// mask the low 5 bits).
func applyHeaderProtection(pkt []byte, firstByteOff, pnOff, pnLen int, mask []byte, long bool) {
	if long {
		pkt[firstByteOff] ^= mask[0] & 0x0f
	} else {
		pkt[firstByteOff] ^= mask[0] & 0x1f
	}
	for i := 0; i < pnLen; i++ {
		pkt[pnOff+i] ^= mask[1+i]
	}
}

// removeHeaderProtection undoes applyHeaderProtection when the real
// packet number length is not yet known: it unmasks the first byte
// first (the only part whose mask bit width is fixed), reads the
// encoded packet number length out of the now-cleartext low bits,
// and then unmasks exactly that many packet number bytes.
func removeHeaderProtection(pkt []byte, firstByteOff, pnOff int, mask []byte, long bool) int {
	if long {
		pkt[firstByteOff] ^= mask[0] & 0x0f
	} else {
		pkt[firstByteOff] ^= mask[0] & 0x1f
	}
	pnLen := int(pkt[firstByteOff]&0x3) + 1
	for i := 0; i < pnLen; i++ {
		pkt[pnOff+i] ^= mask[1+i]
	}
	return pnLen
}

// sampleOffset assumes the packet number field to be 4
// bytes wide when sampling (RFC9001 §5.4.2): header protection is
// applied before the real packet number length is known to an
// observer, so the sample always starts 4 bytes after pnOff.
func sampleOffset(pnOff int) int {
	return pnOff + 4
}

// aeadOverhead is the fixed tag length added by the AES-GCM AEAD used
// throughout (§4.6).
const aeadOverhead = 16
