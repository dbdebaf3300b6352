package bgapi

import "fmt"

// Result codes. 0x01xx are BGAPI errors, 0x04xx are ATT errors (0x0400 + ATT code).
const (
	ResultSuccess            uint16 = 0x0000
	ResultInvalidParameter   uint16 = 0x0180
	ResultWrongState         uint16 = 0x0181
	ResultOutOfMemory        uint16 = 0x0182
	ResultNotImplemented     uint16 = 0x0183
	ResultCommandNotFound    uint16 = 0x0184
	ResultTimeout            uint16 = 0x0185
	ResultNotConnected       uint16 = 0x0186
	ResultInvalidHandle      uint16 = 0x0401
	ResultReadNotPermitted   uint16 = 0x0402
	ResultWriteNotPermitted  uint16 = 0x0403
	ResultInvalidPDU         uint16 = 0x0404
	ResultInvalidOffset      uint16 = 0x0407
	ResultAttributeNotFound  uint16 = 0x040A
	ResultAttributeNotLong   uint16 = 0x040B
	ResultInvalidValueLength uint16 = 0x040D
)

var resultNames = map[uint16]string{
	ResultInvalidParameter:   "invalid parameter",
	ResultWrongState:         "device in wrong state",
	ResultOutOfMemory:        "out of memory",
	ResultNotImplemented:     "feature not implemented",
	ResultCommandNotFound:    "command not recognized",
	ResultTimeout:            "timeout",
	ResultNotConnected:       "not connected",
	ResultInvalidHandle:      "invalid handle",
	ResultReadNotPermitted:   "read not permitted",
	ResultWriteNotPermitted:  "write not permitted",
	ResultInvalidPDU:         "invalid PDU",
	ResultInvalidOffset:      "invalid offset",
	ResultAttributeNotFound:  "attribute not found",
	ResultAttributeNotLong:   "attribute not long",
	ResultInvalidValueLength: "invalid attribute value length",
}

// ResultError is a non-zero result reported by the module, surfaced verbatim.
type ResultError struct {
	Code uint16
	// Op names the command or event that carried the result.
	Op string
}

func (e *ResultError) Error() string {
	name, ok := resultNames[e.Code]
	if !ok {
		name = "unknown error"
	}
	if e.Op == "" {
		return fmt.Sprintf("bgapi result 0x%04X (%s)", e.Code, name)
	}
	return fmt.Sprintf("%s: bgapi result 0x%04X (%s)", e.Op, e.Code, name)
}

// Is matches any *ResultError with the same code, regardless of Op.
func (e *ResultError) Is(target error) bool {
	t, ok := target.(*ResultError)
	return ok && t.Code == e.Code
}

// ATT reports whether the code is an ATT protocol error.
func (e *ResultError) ATT() bool {
	return e.Code&0xFF00 == 0x0400
}

// CheckResult turns a non-zero result into a *ResultError.
func CheckResult(op string, code uint16) error {
	if code == ResultSuccess {
		return nil
	}
	return &ResultError{Code: code, Op: op}
}
