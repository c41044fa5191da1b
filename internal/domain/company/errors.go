package company

import "errors"

var (
	ErrCompanyNotFound   = errors.New("company not found")
	ErrUnknownCategory   = errors.New("unknown service category")
	ErrUnknownObligation = errors.New("unknown obligation bucket")
)
