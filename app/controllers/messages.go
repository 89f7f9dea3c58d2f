package controllers

// Flash texts shown after form posts.
const (
	msgEmailTaken       = "Email already registered!"
	msgRegistered       = "Registration successful! Please log in."
	msgLoggedIn         = "Login successful!"
	msgBadLogin         = "Invalid email or password!"
	msgLoggedOut        = "You have been logged out."
	msgListingSubmitted = "Your application has been submitted successfully!"
	msgNotifyFailed     = "Your listing was saved, but the merchant could not be notified. Please contact them directly."
	msgGeneric          = "Sorry, something went wrong. Please try again."
	msgNoFile           = "No file uploaded!"
	msgNoFileSelected   = "No file selected!"
	msgBadImage         = "Error processing the image. Please try again."
)
