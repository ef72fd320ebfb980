package database

// ErrorKind classifies an execution failure reported by the data engine.
type ErrorKind int

const (
	ErrorKindOther ErrorKind = iota
	ErrorKindColumnNotFound
	ErrorKindTableNotFound
	ErrorKindSyntax
	ErrorKindConnection
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindColumnNotFound:
		return "column_not_found"
	case ErrorKindTableNotFound:
		return "table_not_found"
	case ErrorKindSyntax:
		return "syntax_error"
	case ErrorKindConnection:
		return "connection_error"
	default:
		return "other"
	}
}
