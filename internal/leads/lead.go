package leads

// Payload is the lead-capture contract: contact details plus the
// estimate snapshot the prospect was looking at when they reached out.
type Payload struct {
	Action       string    `json:"action"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Company      string    `json:"company"`
	Phone        string    `json:"phone"`
	Notes        string    `json:"notes"`
	Estimate     *Estimate `json:"estimate"`
	EstimateName string    `json:"estimateName"`
	Source       string    `json:"source"`
	UserID       string    `json:"userId"`
}

// Estimate is the snapshot of an already-computed estimate. It is
// display data by the time it reaches lead capture; nothing here feeds
// back into a calculation.
type Estimate struct {
	Market   string  `json:"market"`
	Size     float64 `json:"size"`
	Unit     string  `json:"unit"`
	Quality  string  `json:"quality"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// Recognized capture actions.
const (
	ActionPDF      = "pdf"
	ActionEmail    = "email"
	ActionWhatsApp = "whatsapp"
	ActionSave     = "save"
)
