package model

// CreatedID is the body returned by create endpoints.
type CreatedID struct {
	ID int64 `json:"id"`
}

// CreatedSlug is returned by create endpoints whose resources use string IDs.
type CreatedSlug struct {
	ID string `json:"id"`
}

// UploadedImage is the body returned by the image upload endpoint.
type UploadedImage struct {
	PublicURL string `json:"publicURL"`
}

// ErrorBody is the JSON error envelope the API returns on failures.
type ErrorBody struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}
