package statement

import "errors"

var (
	ErrStatementNotFound  = errors.New("statement not found")
	ErrCustomerRequired   = errors.New("customer id is required")
	ErrAccountRequired    = errors.New("account id is required")
	ErrInvalidIdentifier  = errors.New("identifier contains unsupported characters")
	ErrInvalidPeriod      = errors.New("period must be in 'YYYY-MM' format")
	ErrInvalidAccountType = errors.New("account type must be 'main' or 'savings'")
	ErrInvalidContentType = errors.New("only application/pdf is allowed")
	ErrInvalidFileSize    = errors.New("file size must be between 1 byte and 25 MiB")
	ErrInvalidFileContent = errors.New("file is not a PDF")
	ErrSizeMismatch       = errors.New("uploaded size does not match declared size")
	ErrInvalidListQuery   = errors.New("invalid list query")
	ErrDuplicateStatement = errors.New("statement already exists")
)
