package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidParams      = errors.New("invalid kandel parameters")
	ErrRPC                = errors.New("rpc failure")
	ErrDecode             = errors.New("log entry does not match event schema")
	ErrPartialEnrichment  = errors.New("one or more enrichment reads failed")
	ErrTxReverted         = errors.New("transaction reverted")
	ErrSubscriptionClosed = errors.New("log subscription closed")
	ErrContextDone        = errors.New("context cancelled")
)
