package domain

// PriorityLevel is one entry of the ordered priority catalog. Levels are
// immutable once a queue or ticket references them; ranks are globally
// unique, lower rank is served first.
type PriorityLevel struct {
	ID    string
	Rank  int
	Label string
}
