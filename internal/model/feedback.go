package model

// FeedbackType distinguishes the three feedback actions a user can take on a
// finalized classification.
type FeedbackType string

// Feedback types.
const (
	FeedbackApprove FeedbackType = "approve"
	FeedbackCorrect FeedbackType = "correct"
	FeedbackComment FeedbackType = "comment"
)

// FeedbackPayload carries the user-supplied fields for one feedback action.
// Category and Subcategory are required for corrections; Comment is free text.
type FeedbackPayload struct {
	Category    string
	Subcategory string
	Comment     string
}
