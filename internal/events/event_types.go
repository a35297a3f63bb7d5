package events

// CardIssuedEvent is the payload for EventTypeCardIssued
type CardIssuedEvent struct {
	MemberID   string `json:"member_id"`
	CardNumber string `json:"card_number"`
	IssueYear  int    `json:"issue_year"`
	Reissued   bool   `json:"reissued"`
}

// TokenIssuedEvent is the payload for EventTypeTokenIssued
type TokenIssuedEvent struct {
	MemberID string `json:"member_id"`
	Kind     string `json:"kind"`
	Degraded bool   `json:"degraded"`
}

// ScanResultEvent is the payload for EventTypeScanVerified and
// EventTypeScanRejected
type ScanResultEvent struct {
	ScannerID string `json:"scanner_id"`
	MemberID  string `json:"member_id,omitempty"`
	TokenKind string `json:"token_kind,omitempty"`
	Result    string `json:"result"`
	Reason    string `json:"reason,omitempty"`
}
