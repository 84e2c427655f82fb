//go:build !darwin || !cgo

package permissions

// Microphone reports Authorized on platforms without a permission model.
func Microphone() Status {
	return Authorized
}

// RequestMicrophone is a no-op on non-macOS platforms.
func RequestMicrophone() {}
