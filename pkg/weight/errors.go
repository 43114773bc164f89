package weight

import "errors"

var (
	ErrNoRecord         = errors.New("no record found")
	ErrNilRecord        = errors.New("record cannot be nil")
	ErrNilStore         = errors.New("record store cannot be nil")
	ErrInvalidColumn    = errors.New("invalid column name")
	ErrInvalidDirection = errors.New("invalid move direction")
	ErrUnsupportedQuery = errors.New("unsupported query")
)
