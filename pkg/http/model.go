package http

// APIResponse is the envelope for every JSON body the server writes.
// Data holds the payload on success and a list of errors otherwise.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_LTE"`
	Field   string                 `json:"field,omitempty" example:"days_ahead"`
	Message string                 `json:"message,omitempty" example:"days_ahead must be 30 or less"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
