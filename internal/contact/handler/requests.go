package handler

// IdentifyRequest is the body of POST /contact/identify. Both fields are
// required on the wire; pointers distinguish absent from empty.
type IdentifyRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
}

// Valid reports whether both identifying fields are present and non-empty.
func (r IdentifyRequest) Valid() bool {
	return r.Email != nil && *r.Email != "" && r.PhoneNumber != nil && *r.PhoneNumber != ""
}

// DeleteResponse confirms a completed delete.
type DeleteResponse struct {
	Message string `json:"message"`
}
