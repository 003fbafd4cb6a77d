// Package stego embeds a small cross-check record into the least
// significant bits of a raster image so a printed or displayed sigil
// can carry enough information to recover and verify a ritual vault
// without touching disk. Byte-envelope discipline (magic, length
// prefix, typed JSON payload) follows the same shape as LSB carriers
// elsewhere in the ecosystem; the carrier medium here is a PNG raster
// rather than an MP3 frame stream.
package stego

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/png"
	"io"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
)

const (
	marker            = "ECHOTOME_V3"
	payloadVersion    = "steg-1"
	bitsPerChannel    = 2
	maxPayloadLen     = 1_000_000
	lengthPrefixBytes = 4
)

// Payload is the record embedded behind a sigil.
type Payload struct {
	RuneID  string `json:"rune_id"`
	EncMK   string `json:"enc_mk"`
	ROCHash string `json:"roc_hash"`
	RIV     string `json:"riv"`
	Version string `json:"version"`
}

// NewPayload builds a payload stamped with the current format version.
func NewPayload(runeID, encMK, rocHash, riv string) Payload {
	return Payload{
		RuneID:  runeID,
		EncMK:   encMK,
		ROCHash: rocHash,
		RIV:     riv,
		Version: payloadVersion,
	}
}

// Capacity reports how many payload bytes fit in img after the
// marker and length prefix overhead.
func Capacity(img image.Image) int {
	bounds := img.Bounds()
	height := bounds.Dy()
	width := bounds.Dx()
	channels := channelCount(img)

	capacityBytes := (height * width * channels * bitsPerChannel) / 8
	overhead := len(marker) + lengthPrefixBytes

	if capacityBytes < overhead {
		return 0
	}
	return capacityBytes - overhead
}

// channelCount is always 4: every carrier is normalized to NRGBA
// (R, G, B, A) before embedding or extraction.
func channelCount(img image.Image) int {
	return 4
}

// Embed writes payload into a fresh copy of img using 2-LSB encoding
// across every RGBA channel of every pixel, most-significant bit of
// each embedded byte first. The input image is never modified.
func Embed(img image.Image, payload Payload) (image.Image, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.New(errs.ErrInvalidInput, "marshaling stego payload: "+err.Error())
	}

	var lenPrefix [lengthPrefixBytes]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(payloadJSON)))

	message := append([]byte(marker), lenPrefix[:]...)
	message = append(message, payloadJSON...)

	if len(message) > Capacity(img)+len(marker)+lengthPrefixBytes {
		return nil, errs.New(errs.ErrInvalidInput, "payload too large for carrier capacity")
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	draw(out, img)

	bits := bytesToBits(message)
	bitIdx := 0

	mask := byte((0xFF << bitsPerChannel) & 0xFF)

outer:
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pix := out.NRGBAAt(x, y)
			channels := []*uint8{&pix.R, &pix.G, &pix.B, &pix.A}
			for _, ch := range channels {
				if bitIdx >= len(bits) {
					out.SetNRGBA(x, y, pix)
					break outer
				}
				cleared := *ch & mask
				var embedBits byte
				for b := 0; b < bitsPerChannel; b++ {
					if bitIdx < len(bits) {
						embedBits |= bits[bitIdx] << (bitsPerChannel - 1 - b)
						bitIdx++
					}
				}
				*ch = cleared | embedBits
			}
			out.SetNRGBA(x, y, pix)
		}
	}

	return out, nil
}

func draw(dst *image.NRGBA, src image.Image) {
	bounds := src.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
}

// Extract reads an embedded payload out of img. A magic mismatch
// returns (nil, nil): there is simply no payload present, not an
// error. A length field exceeding maxPayloadLen, or a payload that
// fails to decode as the expected JSON record, is reported as
// errs.ErrCorrupt.
func Extract(img image.Image) (*Payload, error) {
	nrgba := toNRGBA(img)

	markerBytes := extractBytes(nrgba, 0, len(marker))
	if !bytes.Equal(markerBytes, []byte(marker)) {
		return nil, nil
	}

	lenBytes := extractBytes(nrgba, len(marker), lengthPrefixBytes)
	payloadLen := binary.BigEndian.Uint32(lenBytes)
	if payloadLen > maxPayloadLen {
		return nil, errs.New(errs.ErrCorrupt, "stego payload length exceeds maximum")
	}

	payloadBytes := extractBytes(nrgba, len(marker)+lengthPrefixBytes, int(payloadLen))

	var payload Payload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, errs.New(errs.ErrCorrupt, "decoding stego payload: "+err.Error())
	}

	return &payload, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	draw(out, img)
	return out
}

func extractBytes(img *image.NRGBA, byteOffset, numBytes int) []byte {
	bitOffset := byteOffset * 8
	numBits := numBytes * 8

	bits := make([]byte, 0, numBits)
	bitIdx := 0

	bounds := img.Bounds()

outer:
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pix := img.NRGBAAt(x, y)
			channels := []uint8{pix.R, pix.G, pix.B, pix.A}
			for _, ch := range channels {
				if len(bits) >= numBits {
					break outer
				}
				if bitIdx < bitOffset {
					bitIdx += bitsPerChannel
					continue
				}
				for b := 0; b < bitsPerChannel; b++ {
					if len(bits) >= numBits {
						break
					}
					bit := (ch >> (bitsPerChannel - 1 - b)) & 1
					bits = append(bits, bit)
				}
				bitIdx += bitsPerChannel
			}
		}
	}

	return bitsToBytes(bits)
}

func bytesToBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

func bitsToBytes(bits []byte) []byte {
	for len(bits)%8 != 0 {
		bits = append(bits, 0)
	}
	out := make([]byte, len(bits)/8)
	for i := 0; i < len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | bits[i+j]
		}
		out[i/8] = b
	}
	return out
}

// VerifyStegoIntegrity re-extracts the payload from img and checks it
// carries every required field at the current version, optionally
// cross-checking the caller's expected rune id and ROC hash.
func VerifyStegoIntegrity(img image.Image, expectedRuneID, expectedROCHash string) bool {
	payload, err := Extract(img)
	if err != nil || payload == nil {
		return false
	}

	if payload.RuneID == "" || payload.EncMK == "" || payload.ROCHash == "" ||
		payload.RIV == "" || payload.Version == "" {
		return false
	}

	if payload.Version != payloadVersion {
		return false
	}

	if expectedRuneID != "" && payload.RuneID != expectedRuneID {
		return false
	}
	if expectedROCHash != "" && payload.ROCHash != expectedROCHash {
		return false
	}

	return true
}

// EncodePNG writes img to w as a PNG, the lossless format required to
// preserve an embedded payload.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return errs.New(errs.ErrResource, "encoding PNG: "+err.Error())
	}
	return nil
}

// DecodePNG reads a PNG carrier from r.
func DecodePNG(r io.Reader) (image.Image, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, errs.New(errs.ErrInvalidInput, "decoding PNG: "+err.Error())
	}
	return img, nil
}
