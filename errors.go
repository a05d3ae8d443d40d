package main

// ErrorCode defines error types surfaced by the board
type ErrorCode string

const (
	// FetchFailed covers network, upstream and parse failures of one fetch cycle.
	FetchFailed    ErrorCode = "FetchFailed"
	UnknownStation ErrorCode = "UnknownStation"
	InvalidFilter  ErrorCode = "InvalidFilter"
	InvalidConfig  ErrorCode = "InvalidConfig"
	InvalidMessage ErrorCode = "InvalidMessage"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// fetchFailedMessage is the only fetch error text users see.
const fetchFailedMessage = "Failed to fetch live data. Please try again."
