// Package response defines the tagged result type published as the body of
// a reply envelope. Handlers that keep legacy reply shapes build their own
// structs; everything else goes through OK/Failure so failures always carry
// success, message and status.
package response

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(status int, message string, data any) Result {
	return Result{Success: true, Message: message, Status: status, Data: data}
}

func Failure(status int, message string) Result {
	return Result{Success: false, Message: message, Status: status}
}
