package primitives

// Predicate is a scalar comparison operator used by field and join predicates.
type Predicate int

const (
	Equals Predicate = iota
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	NotEqual
)

func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case LessThanOrEqual:
		return "<="
	case GreaterThanOrEqual:
		return ">="
	case NotEqual:
		return "!="
	default:
		return "UNKNOWN"
	}
}
