// internal/workers/agent/render-response/messages.go
package renderresponse

// Fixed user-facing strings.
const (
	Greeting                = "Hello! How can I assist you with your pharmacy needs today?"
	HelpMessage             = "I'm here to help with medicine availability, orders, and prescriptions. Please let me know how I can assist you."
	UnprocessableMessage    = "I couldn't process that request."
	GenericErrorMessage     = "Something went wrong."
	BackendApology          = "Sorry, I couldn't reach the pharmacy system just now. Please try again in a moment."
	NotFoundMessage         = "Medicine not found."
	InsufficientStock       = "Insufficient stock available."
	PrescriptionRequired    = "A valid prescription is required for this medicine."
	InvalidQuantityMessage  = "Please provide a quantity greater than zero."
	MissingMedicineMessage  = "Please tell me which medicine you mean."
	OrderNotFoundMessage    = "I couldn't find that order."
	NoOrdersMessage         = "You have no previous orders."
	HistoryHeader           = "Here are your previous orders:"
	OrderPlacedHeader       = "Your order has been successfully placed."
	PrescriptionVerifiedMsg = "Your prescription has been verified."
)

const dateLayout = "2006-01-02"
