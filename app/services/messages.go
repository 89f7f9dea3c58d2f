package services

// User-facing validation messages.
const (
	MsgRequiredFields     = "Please fill out all required fields."
	MsgInvalidEmail       = "Invalid email format."
	MsgInvalidPhone       = "Invalid phone number. Please enter a 10-digit number."
	MsgInvalidMerchant    = "Invalid merchant email format."
	MsgNegativePrice      = "Prices must be non-negative numbers."
	MsgPasswordsDontMatch = "Passwords do not match!"
)
