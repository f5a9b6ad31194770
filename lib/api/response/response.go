package response

import (
	"qrpass/entity"
	"time"
)

// Response is the body of every API reply consumed by the guest page.
type Response struct {
	Ok          bool        `json:"ok"`
	Code        entity.Code `json:"code,omitempty"`
	Name        string      `json:"name,omitempty"`
	CheckedInAt *time.Time  `json:"checkedInAt,omitempty"`
	Message     string      `json:"message,omitempty"`
}

func Ok(code entity.Code, name string, checkedInAt *time.Time) Response {
	return Response{
		Ok:          true,
		Code:        code,
		Name:        name,
		CheckedInAt: checkedInAt,
	}
}

func Fail(code entity.Code, name string, checkedInAt *time.Time, message string) Response {
	return Response{
		Ok:          false,
		Code:        code,
		Name:        name,
		CheckedInAt: checkedInAt,
		Message:     message,
	}
}

func Message(message string) Response {
	return Response{
		Ok:      true,
		Message: message,
	}
}

func Error(message string) Response {
	return Response{
		Ok:      false,
		Message: message,
	}
}
