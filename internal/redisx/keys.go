package redisx

import "time"

const (
	// OTP challenge per phone: otp:challenge:{phone} -> code
	KeyOTPChallenge = "otp:challenge:%s"

	// Cache product detail: product:{product_id} -> product JSON
	KeyProduct = "product:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLProductCache = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
