package eth

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// WETHMainnet is the wrapped-ether contract tracked alongside native ETH.
const WETHMainnet = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

// IsValidAddress checks the 0x-prefixed, 40 hex character format. It does not check the checksum.
func IsValidAddress(address string) bool {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return false
	}
	for _, c := range address[2:] {
		if !isHexChar(c) {
			return false
		}
	}
	return true
}

// ToChecksumAddress converts an address to EIP-55 checksum format.
// Invalid input is returned unchanged.
func ToChecksumAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}

	addr := strings.ToLower(address[2:])

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(addr))
	hash := hex.EncodeToString(hasher.Sum(nil))

	var b strings.Builder
	b.Grow(42)
	b.WriteString("0x")
	for i := 0; i < 40; i++ {
		c := addr[i]
		// Uppercase the letter when the matching hash nibble is >= 8
		if hash[i] >= '8' && c >= 'a' && c <= 'f' {
			c -= 32
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ValidateChecksumAddress validates the EIP-55 checksum of a mixed-case address.
// All-lowercase and all-uppercase addresses carry no checksum and are accepted.
func ValidateChecksumAddress(address string) error {
	if !IsValidAddress(address) {
		return roierr.WithDetails(roierr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}

	if expected := ToChecksumAddress(address); address != expected {
		return roierr.WithDetails(roierr.ErrInvalidChecksum, map[string]string{
			"expected": expected,
			"actual":   address,
		})
	}
	return nil
}

// NormalizeAddress validates an address, including its checksum, and returns its EIP-55 form.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if err := ValidateChecksumAddress(address); err != nil {
		return "", err
	}
	return ToChecksumAddress(address), nil
}

// SameAddress compares two addresses ignoring case.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

func isHexChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
