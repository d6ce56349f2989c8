package dto

// Event audience tags on appointment notifications, so a client signed in to
// a shared account can tell which party the event concerns.
const (
	EventTargetPatient = "patient"
	EventTargetDoctor  = "doctor"
	EventTargetUser    = "user"
)

// AppointmentEventPayload is the wire form of an appointment domain event
// delivered on a user's appointment notification channel.
type AppointmentEventPayload struct {
	Event       string              `json:"event"`
	Appointment AppointmentResponse `json:"appointment"`
	Target      string              `json:"target"`
}

// LinkEventPayload is the wire form of a link domain event delivered on the
// counterparty's link notification channel.
type LinkEventPayload struct {
	Event string       `json:"event"`
	Link  LinkResponse `json:"link"`
}
