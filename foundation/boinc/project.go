package boinc

// DefaultProjectID is the project every work unit is credited to.
const DefaultProjectID = "clout-contracts-compute"

// Set of project status values.
const (
	ProjectActive    = "active"
	ProjectPaused    = "paused"
	ProjectCompleted = "completed"
)

// Project represents a BOINC project work is credited to.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
}

// defaultProject returns the project registered on connect.
func defaultProject() Project {
	return Project{
		ID:          DefaultProjectID,
		Name:        "CloutContracts Distributed Computing",
		Description: "Distributed compilation and verification of smart contracts",
		URL:         "https://boinc.cloutcontracts.net",
		Status:      ProjectActive,
	}
}
