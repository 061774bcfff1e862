// Package codec converts raw TON account addresses into their checksummed
// user-friendly forms and back.
package codec

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigurn/crc16"
)

const (
	FlagBounceable    byte = 0x11
	FlagNonBounceable byte = 0x51
	FlagTestnet       byte = 0x80

	HashLength     = 32
	friendlyLength = 36
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

type InvalidAddressError struct {
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return "invalid address: " + e.Reason
}

// Forms holds both display encodings of one raw address.
type Forms struct {
	Bounceable    string `json:"bounceable" msgpack:"bounceable"`
	NonBounceable string `json:"non_bounceable" msgpack:"non_bounceable"`
}

// Checksum is CRC-16/XMODEM.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// Encode builds [flag, workchain&0xFF] + hash + crc16 and returns it as
// unpadded base64url.
func Encode(flag byte, workchain int32, hash []byte) (string, error) {
	if len(hash) != HashLength {
		return "", &InvalidAddressError{fmt.Sprintf("hash must be %d bytes, got %d", HashLength, len(hash))}
	}
	buf := make([]byte, 0, friendlyLength)
	buf = append(buf, flag, byte(workchain&0xFF))
	buf = append(buf, hash...)
	buf = binary.BigEndian.AppendUint16(buf, Checksum(buf))
	return strings.TrimRight(base64.URLEncoding.EncodeToString(buf), "="), nil
}

// UserFriendly returns the bounceable and non-bounceable forms of (workchain, hash).
func UserFriendly(workchain int32, hash []byte, testnet bool) (Forms, error) {
	var extra byte
	if testnet {
		extra = FlagTestnet
	}
	b, err := Encode(FlagBounceable|extra, workchain, hash)
	if err != nil {
		return Forms{}, err
	}
	nb, err := Encode(FlagNonBounceable|extra, workchain, hash)
	if err != nil {
		return Forms{}, err
	}
	return Forms{Bounceable: b, NonBounceable: nb}, nil
}

// Decode parses a user-friendly address in either base64 alphabet, with or
// without padding, and verifies its checksum.
func Decode(s string) (flag byte, workchain int32, hash []byte, err error) {
	s = strings.TrimRight(s, "=")
	var data []byte
	if strings.ContainsAny(s, "+/") {
		data, err = base64.RawStdEncoding.DecodeString(s)
	} else {
		data, err = base64.RawURLEncoding.DecodeString(s)
	}
	if err != nil {
		return 0, 0, nil, &InvalidAddressError{fmt.Sprintf("bad base64: %v", err)}
	}
	if len(data) != friendlyLength {
		return 0, 0, nil, &InvalidAddressError{fmt.Sprintf("expected %d bytes, got %d", friendlyLength, len(data))}
	}
	if crc := binary.BigEndian.Uint16(data[34:]); crc != Checksum(data[:34]) {
		return 0, 0, nil, &InvalidAddressError{"checksum mismatch"}
	}
	flag = data[0]
	switch flag &^ FlagTestnet {
	case FlagBounceable, FlagNonBounceable:
	default:
		return 0, 0, nil, &InvalidAddressError{fmt.Sprintf("unknown flag 0x%02x", flag)}
	}
	return flag, int32(int8(data[1])), data[2:34], nil
}

// FormatRaw renders the colon-joined workchain:hex form with lowercase hex.
func FormatRaw(workchain int32, hash []byte) string {
	return strconv.FormatInt(int64(workchain), 10) + ":" + hex.EncodeToString(hash)
}

// ParseRaw parses "workchain:hex".
func ParseRaw(raw string) (int32, []byte, error) {
	wcPart, hashPart, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, nil, &InvalidAddressError{fmt.Sprintf("%q is not a raw address", raw)}
	}
	wc, err := strconv.ParseInt(wcPart, 10, 32)
	if err != nil {
		return 0, nil, &InvalidAddressError{fmt.Sprintf("bad workchain %q", wcPart)}
	}
	hash, err := hex.DecodeString(hashPart)
	if err != nil {
		return 0, nil, &InvalidAddressError{fmt.Sprintf("bad account hash %q", hashPart)}
	}
	if len(hash) != HashLength {
		return 0, nil, &InvalidAddressError{fmt.Sprintf("hash must be %d bytes, got %d", HashLength, len(hash))}
	}
	return int32(wc), hash, nil
}

// FromRaw converts a raw address string straight into its display forms.
func FromRaw(raw string, testnet bool) (Forms, error) {
	wc, hash, err := ParseRaw(raw)
	if err != nil {
		return Forms{}, err
	}
	return UserFriendly(wc, hash, testnet)
}

// Normalize returns the lowercase raw form of raw.
func Normalize(raw string) (string, error) {
	wc, hash, err := ParseRaw(raw)
	if err != nil {
		return "", err
	}
	return FormatRaw(wc, hash), nil
}
