// Package otp генерирует одноразовые коды подтверждения.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Коды набираются из ненулевых цифр, чтобы не путать пользователей
// ведущим нулем.
const digits = "123456789"

// Generate возвращает случайный код из length цифр '1'..'9'. Источник
// случайности криптографический: код открывает смену номера телефона.
func Generate(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("otp length must be positive, got %d", length)
	}

	max := big.NewInt(int64(len(digits)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		buf[i] = digits[n.Int64()]
	}
	return string(buf), nil
}
