package internal

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"
	"sync"
)

const signingSecretSize = 32

// NewSigningSecret returns a random HS256 key for processes that were not
// configured with one.
func NewSigningSecret() ([]byte, error) {
	secret := make([]byte, signingSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("read signing secret: %w", err)
	}
	return secret, nil
}

// NewFloatSource returns a goroutine-safe uniform [0,1) generator seeded from
// crypto/rand.
func NewFloatSource() (func() float64, error) {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	r := mrand.New(mrand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
	var mu sync.Mutex
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}, nil
}
