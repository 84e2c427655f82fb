package device

import "fmt"

// TransportCode is a raw platform transport identifier. The values are the
// CoreAudio four-char codes; other backends map onto them.
type TransportCode uint32

const (
	TransportCodeUnknown      TransportCode = 0
	TransportCodeBuiltIn      TransportCode = 'b'<<24 | 'l'<<16 | 't'<<8 | 'n'
	TransportCodeAggregate    TransportCode = 'g'<<24 | 'r'<<16 | 'u'<<8 | 'p'
	TransportCodeVirtual      TransportCode = 'v'<<24 | 'i'<<16 | 'r'<<8 | 't'
	TransportCodePCI          TransportCode = 'p'<<24 | 'c'<<16 | 'i'<<8 | ' '
	TransportCodeUSB          TransportCode = 'u'<<24 | 's'<<16 | 'b'<<8 | ' '
	TransportCodeFireWire     TransportCode = '1'<<24 | '3'<<16 | '9'<<8 | '4'
	TransportCodeBluetooth    TransportCode = 'b'<<24 | 'l'<<16 | 'u'<<8 | 'e'
	TransportCodeBluetoothLE  TransportCode = 'b'<<24 | 'l'<<16 | 'e'<<8 | 'a'
	TransportCodeHDMI         TransportCode = 'h'<<24 | 'd'<<16 | 'm'<<8 | 'i'
	TransportCodeDisplayPort  TransportCode = 'd'<<24 | 'p'<<16 | 'r'<<8 | 't'
	TransportCodeAirPlay      TransportCode = 'a'<<24 | 'i'<<16 | 'r'<<8 | 'p'
	TransportCodeAVB          TransportCode = 'e'<<24 | 'a'<<16 | 'v'<<8 | 'b'
	TransportCodeThunderbolt  TransportCode = 't'<<24 | 'h'<<16 | 'u'<<8 | 'n'
	TransportCodeContinuityW  TransportCode = 'c'<<24 | 'c'<<16 | 'w'<<8 | 'd'
	TransportCodeContinuityWL TransportCode = 'c'<<24 | 'c'<<16 | 'w'<<8 | 'l'
)

// String renders the code as its four-char form, e.g. "usb ".
func (c TransportCode) String() string {
	if c == TransportCodeUnknown {
		return "0"
	}
	b := []byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(c))
		}
	}
	return string(b)
}

// TransportKind is the connection class reported for a device.
type TransportKind int

const (
	TransportUnknown TransportKind = iota
	TransportBuiltIn
	TransportUSB
	TransportBluetooth
)

func (k TransportKind) String() string {
	switch k {
	case TransportBuiltIn:
		return "Built-in"
	case TransportUSB:
		return "USB"
	case TransportBluetooth:
		return "Bluetooth"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the kind with its display name.
func (k TransportKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the display names produced by MarshalText.
// Anything else decodes as TransportUnknown.
func (k *TransportKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Built-in":
		*k = TransportBuiltIn
	case "USB":
		*k = TransportUSB
	case "Bluetooth":
		*k = TransportBluetooth
	default:
		*k = TransportUnknown
	}
	return nil
}

// Physical reports whether devices of this kind count as microphones.
func (k TransportKind) Physical() bool {
	return k != TransportUnknown
}

// Classify maps a raw transport code onto a TransportKind. Codes without a
// mapping classify as TransportUnknown.
func Classify(code TransportCode) TransportKind {
	switch code {
	case TransportCodeBuiltIn:
		return TransportBuiltIn
	case TransportCodeUSB:
		return TransportUSB
	case TransportCodeBluetooth, TransportCodeBluetoothLE:
		return TransportBluetooth
	default:
		return TransportUnknown
	}
}
