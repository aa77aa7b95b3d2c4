package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// initialSalt is the fixed 20-byte salt QUIC-TLS mixes with the
// client's destination connection id to derive the Initial secret,
// the one encryption level both endpoints can derive without any
// prior handshake state (§4.6).
var initialSalt = []byte{
	0xc3, 0xee, 0xf7, 0x12, 0xc7, 0x2e, 0xbb, 0x5a,
	0x11, 0xa7, 0xd2, 0x43, 0x2b, 0xb4, 0x63, 0x65,
	0xbe, 0xf9, 0xf5, 0x02,
}

const (
	initialKeyLen = 16
	initialIVLen  = 12
	initialHPLen  = 16
)

// initialKeys holds the packet-protection material for one direction
// at the Initial encryption level.
type initialKeys struct {
	key  []byte
	iv   []byte
	hp   []byte
	aead cipher.AEAD
}

func hkdfExpandLabel(secret []byte, label string, length int) []byte {
	info := make([]byte, 0, 2+1+5+len(label)+1)
	info = append(info, byte(length>>8), byte(length))
	fullLabel := "tls13 " + label
	info = append(info, byte(len(fullLabel)))
	info = append(info, fullLabel...)
	info = append(info, 0) // no context
	out := make([]byte, length)
	r := hkdf.Expand(sha256.New, secret, info)
	io.ReadFull(r, out)
	return out
}

// deriveInitialSecrets computes the client and server Initial secrets
// from the client's original destination connection id, per
// QUIC-TLS's initial_secret derivation (RFC 9001 §5.2, applied here
// against the draft the original implementation targets).
func deriveInitialSecrets(dcid ConnectionID) (clientSecret, serverSecret []byte) {
	initialSecret := hkdf.Extract(sha256.New, dcid, initialSalt)
	clientSecret = hkdfExpandLabel(initialSecret, "client in", sha256.Size)
	serverSecret = hkdfExpandLabel(initialSecret, "server in", sha256.Size)
	return clientSecret, serverSecret
}

func deriveInitialKeys(secret []byte) (*initialKeys, error) {
	key := hkdfExpandLabel(secret, "quic key", initialKeyLen)
	iv := hkdfExpandLabel(secret, "quic iv", initialIVLen)
	hp := hkdfExpandLabel(secret, "quic hp", initialHPLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &initialKeys{key: key, iv: iv, hp: hp, aead: aead}, nil
}

// initialKeyPair bundles both directions of Initial protection,
// derived once a connection learns the peer's (or its own) original
// destination connection id.
type initialKeyPair struct {
	client *initialKeys
	server *initialKeys
}

func newInitialKeyPair(dcid ConnectionID) (*initialKeyPair, error) {
	clientSecret, serverSecret := deriveInitialSecrets(dcid)
	clientKeys, err := deriveInitialKeys(clientSecret)
	if err != nil {
		return nil, err
	}
	serverKeys, err := deriveInitialKeys(serverSecret)
	if err != nil {
		return nil, err
	}
	return &initialKeyPair{client: clientKeys, server: serverKeys}, nil
}

// packetIV XORs the static IV with the packet number to form the
// per-packet AEAD nonce (§4.6).
func packetIV(iv []byte, pn uint64) []byte {
	nonce := make([]byte, len(iv))
	copy(nonce, iv)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-1-i] ^= byte(pn >> (8 * i))
	}
	return nonce
}
