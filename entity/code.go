package entity

// Code classifies the outcome of a peek or check-in for the guest page.
type Code string

const (
	CodeReady       Code = "READY"
	CodeAlreadyUsed Code = "ALREADY_USED"
	CodeNotFound    Code = "NOT_FOUND"
	CodeCheckedIn   Code = "CHECKED_IN"
)
