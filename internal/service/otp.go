package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
)

// generateRandomOTP draws each digit uniformly from 0-9.
func generateRandomOTP(length int) (string, error) {
	otp := make([]byte, length)
	for i := range otp {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		otp[i] = byte('0' + num.Int64())
	}
	return string(otp), nil
}

// HashOTP returns the hex SHA-256 of the code as held in the session.
func HashOTP(otp string) string {
	h := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(h[:])
}

// OTPEqual compares the submitted code against the stored hash in constant time.
// No trimming or normalisation is applied to the submitted value.
func OTPEqual(submitted, storedHash string) bool {
	if submitted == "" || storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashOTP(submitted)), []byte(storedHash)) == 1
}
