package models

import "time"

// Submission statuses.
const (
	StatusPending  = "pending"
	StatusAssigned = "assigned"
	StatusSelected = "selected"
	StatusRejected = "rejected"
)

// Presentation and journal preferences accepted on the submission form.
const (
	PresentationOnline  = "online"
	PresentationOffline = "offline"
	PresentationHybrid  = "hybrid"

	JournalYes   = "yes"
	JournalNo    = "no"
	JournalMaybe = "maybe"
)

// Submission is a single author's paper entry.
type Submission struct {
	ID           string  `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	AuthorName   string  `gorm:"column:author_name" json:"author_name"`
	CoAuthorName *string `gorm:"column:co_author_name" json:"co_author_name,omitempty"`
	Email        string  `gorm:"column:email;index" json:"email"`
	CountryCode  string  `gorm:"column:country_code" json:"country_code"`
	Phone        string  `gorm:"column:phone" json:"phone"`
	WhatsApp     *string `gorm:"column:whatsapp" json:"whatsapp,omitempty"`

	PaperTitle         string  `gorm:"column:paper_title" json:"paper_title"`
	Institution        string  `gorm:"column:institution" json:"institution"`
	Designation        string  `gorm:"column:designation" json:"designation"`
	Department         string  `gorm:"column:department" json:"department"`
	PresentationMode   string  `gorm:"column:presentation_mode" json:"presentation_mode"`
	JournalPublication string  `gorm:"column:journal_publication" json:"journal_publication"`
	Message            *string `gorm:"column:message" json:"message,omitempty"`

	DocumentURL  *string `gorm:"column:document_url" json:"document_url"`
	DocumentName *string `gorm:"column:document_name" json:"document_name"`
	DocumentKey  *string `gorm:"column:document_key" json:"-"`

	Status      string    `gorm:"column:status;index;default:pending" json:"status"`
	AssignedTo  *string   `gorm:"column:assigned_to;type:char(36);index" json:"assigned_to"`
	SubmittedAt time.Time `gorm:"column:submitted_at;index" json:"submitted_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Submission) TableName() string {
	return "submissions"
}

// IsAssignedTo reports whether the submission is currently assigned to reviewerID.
func (s *Submission) IsAssignedTo(reviewerID string) bool {
	return s.AssignedTo != nil && *s.AssignedTo == reviewerID
}
