// DTOs for the daily question limit
package dto

import "time"

// LimitExceededError carries the usage details behind a 429.
type LimitExceededError struct {
	Limit      int       `json:"limit"`
	Used       int       `json:"used"`
	ResetAfter time.Time `json:"reset_after"`
}

func (e *LimitExceededError) Error() string {
	return "daily question limit exceeded"
}

type LimitExceededData struct {
	Limit      int       `json:"limit"`
	Used       int       `json:"used"`
	ResetAfter time.Time `json:"reset_after"`
	ShowSignIn bool      `json:"show_sign_in"`
}

type LimitExceededResponse struct {
	Success   bool              `json:"success"`
	Code      int               `json:"code"`
	Message   string            `json:"message"`
	ErrorType string            `json:"error_type"`
	Data      LimitExceededData `json:"data"`
}
