package validation

import "fmt"

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// ValidatePassword checks a new password. Existing accounts predate any
// complexity policy, so only length is enforced.
func ValidatePassword(password string) error {
	if len(password) == 0 {
		return fmt.Errorf("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
	}
	return nil
}
