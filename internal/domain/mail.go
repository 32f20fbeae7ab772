package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ChangedCell struct {
	Date         string `json:"date"`
	Availability string `json:"availability"`
}

type AvailabilityChangedMailData struct {
	FullName    string        `json:"fullName"`
	ProjectName string        `json:"projectName"`
	ChangedBy   string        `json:"changedBy"`
	Changes     []ChangedCell `json:"changes"`
}
