// Package codegen produces unpredictable, human-typable access codes and
// temporary passwords. All alphabets exclude the visually confusable
// characters 0, O, I, 1 and L (and their lowercase forms where relevant).
package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	codeAlphabet    = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	upperAlphabet   = "ABCDEFGHJKMNPQRSTUVWXYZ"
	lowerAlphabet   = "abcdefghjkmnpqrstuvwxyz"
	digitAlphabet   = "23456789"
	symbolAlphabet  = "!@#$%^&*"
	unionAlphabet   = upperAlphabet + lowerAlphabet + digitAlphabet + symbolAlphabet
	minPasswordSize = 4
)

// Code returns prefix followed by length characters drawn uniformly from
// the restricted alphanumeric alphabet. The generator makes no uniqueness
// guarantee; callers retry on conflict with a bounded attempt count.
func Code(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}
	var b strings.Builder
	b.WriteString(prefix)
	for i := 0; i < length; i++ {
		ch, err := pick(codeAlphabet)
		if err != nil {
			return "", err
		}
		b.WriteByte(ch)
	}
	return b.String(), nil
}

// TemporaryPassword returns a password of exactly length characters
// containing at least one uppercase letter, one lowercase letter, one digit
// and one symbol. One character per class is seeded, the remainder is drawn
// from the union alphabet, and the result is shuffled so the guaranteed
// characters are not positionally predictable.
func TemporaryPassword(length int) (string, error) {
	if length < minPasswordSize {
		return "", fmt.Errorf("password length must be at least %d, got %d", minPasswordSize, length)
	}
	buf := make([]byte, 0, length)
	for _, class := range []string{upperAlphabet, lowerAlphabet, digitAlphabet, symbolAlphabet} {
		ch, err := pick(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, ch)
	}
	for len(buf) < length {
		ch, err := pick(unionAlphabet)
		if err != nil {
			return "", err
		}
		buf = append(buf, ch)
	}
	if err := shuffle(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("read random index: %w", err)
	}
	return alphabet[n.Int64()], nil
}

// shuffle performs a Fisher-Yates shuffle using crypto/rand.
func shuffle(buf []byte) error {
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("read random index: %w", err)
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}
	return nil
}
