package bx24

// Task is a tasks.task.list item. Numeric fields are decimal strings,
// as the REST gateway sends them.
type Task struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ResponsibleID   string `json:"responsibleId"`
	TimeEstimate    string `json:"timeEstimate"`    // seconds
	TimeSpentInLogs string `json:"timeSpentInLogs"` // seconds
	CreatedDate     string `json:"createdDate"`
	ClosedDate      string `json:"closedDate"`
	Status          string `json:"status"`
}

// User is a user.get item.
type User struct {
	ID       string `json:"ID"`
	Name     string `json:"NAME"`
	LastName string `json:"LAST_NAME"`
	Email    string `json:"EMAIL"`
}

// Filter keys recognized by tasks.task.list.
const (
	FilterResponsibleID = "RESPONSIBLE_ID"
	FilterStatus        = "STATUS"
	FilterClosedFrom    = ">=CLOSED_DATE"
	FilterClosedTo      = "<=CLOSED_DATE"
)

// Pagination defaults applied when Params leaves them zero.
const (
	DefaultStart = 0
	DefaultLimit = 50
)
