package api

import "github.com/shopspring/decimal"

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	contestHandler    contestHandler
	submissionHandler submissionHandler
	paymentHandler    paymentHandler
	userHandler       userHandler
	authHandler       authHandler
	standingsHandler  standingsHandler
	uploadHandler     uploadHandler
	healthHandler     healthHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"contest ended: deadline has passed"`
	Kind    string `json:"kind" example:"ContestEnded"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"deadline"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

// contestRequest accepts money as a JSON number or a string. Older clients
// also send creatorId, creatorName, status and participants; the server owns
// those and the decoder drops them.
type contestRequest struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	TaskInstruction string              `json:"taskInstruction"`
	Image           string              `json:"image"`
	Type            string              `json:"type"`
	Price           decimal.NullDecimal `json:"price"`
	PrizeMoney      decimal.NullDecimal `json:"prizeMoney"`
	Deadline        string              `json:"deadline"`
}

type statusRequest struct {
	Status   string `json:"status"`
	WinnerID string `json:"winnerId,omitempty"`
}

type winnerRequest struct {
	WinnerID string `json:"winnerId"`
}

// submissionRequest ignores the userId, userName and userEmail older clients
// send; the submitter is always the caller.
type submissionRequest struct {
	ContestID string `json:"contestId"`
	TaskLink  string `json:"taskLink"`
}

// The amount is always the contest's price; a client-sent price is dropped.
type paymentIntentRequest struct {
	ContestID string `json:"contestId"`
}

type confirmPaymentRequest struct {
	ContestID       string `json:"contestId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type registerUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
}

type profileRequest struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photoURL"`
	Bio      *string `json:"bio"`
	Address  *string `json:"address"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type tokenRequest struct {
	Email string `json:"email"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type uploadRequest struct {
	ContentType string `json:"contentType"`
	Folder      string `json:"folder"`
}
