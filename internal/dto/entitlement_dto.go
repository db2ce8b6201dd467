package dto

type EntitlementResponse struct {
	IsPremium bool `json:"is_premium"`
	Loading   bool `json:"loading"`
}
