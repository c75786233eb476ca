package app

// ChatMessageRequest is one inbound customer chat turn.
type ChatMessageRequest struct {
	SessionID        string
	Message          string
	OrderID          string
	Reason           string
	WantsStoreCredit bool
	PhotosProvided   bool
}

// ResolveRequest is one stateless resolution request: no chat session,
// no case, just a decision and a drafted reply.
type ResolveRequest struct {
	OrderID          string
	Reason           string
	Message          string
	WantsStoreCredit bool
	PhotosProvided   bool
}

// HumanDecisionRequest records a reviewer verdict on a case.
type HumanDecisionRequest struct {
	CaseID   string
	Decision string
	Notes    string
}
