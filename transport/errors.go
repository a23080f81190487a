package transport

import "fmt"

// Server error codes shared between server and client.
const (
	CodeOK                = 0
	CodeNotAuthenticated  = 1
	CodeCanNotRegister    = 2
	CodeMethodGetNotAllow = 3
	CodeCommandNotFound   = 4
	CodeSignNotOK         = 5
	CodeComputerNotFound  = 6
	CodeDeviceNotFound    = 7
	CodeVersionNotFound   = 8
	CodeGeneric           = 100
)

var errorInfo = map[int]string{
	CodeOK:                "no errors",
	CodeNotAuthenticated:  "user not authenticated",
	CodeCanNotRegister:    "user can not register computers",
	CodeMethodGetNotAllow: "method GET not allowed",
	CodeCommandNotFound:   "command not found",
	CodeSignNotOK:         "signature is not valid",
	CodeComputerNotFound:  "computer not found",
	CodeDeviceNotFound:    "device not found",
	CodeVersionNotFound:   "version not found",
	CodeGeneric:           "generic error",
}

// ErrorInfo resolves a server error code to its description, or an
// empty string for unknown codes.
func ErrorInfo(code int) string {
	return errorInfo[code]
}

// ServerError is an application-level error reported by the migasfree
// server inside an otherwise successful HTTP exchange.
type ServerError struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}

func (e *ServerError) Error() string {
	info := e.Info
	if info == "" {
		info = ErrorInfo(e.Code)
	}

	return fmt.Sprintf("server error %d: %s", e.Code, info)
}

// IsNotFound reports whether err is a ServerError carrying an HTTP
// 404 or the computer/device not found application codes.
func IsNotFound(err error) bool {
	se, ok := err.(*ServerError)
	if !ok {
		return false
	}

	return se.Code == 404 || se.Code == CodeComputerNotFound || se.Code == CodeDeviceNotFound
}
