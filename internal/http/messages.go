package http

const (
	msgRegistered         = "Registration successful! Please log in."
	msgUsernameTaken      = "Username already in use. Please choose another one."
	msgRegisterFailed     = "Registration failed. Please try again later."
	msgLoggedIn           = "Login successful!"
	msgInvalidCredentials = "Invalid username or password"
	msgLoginFailed        = "Login failed. Please try again later."
	msgLoggedOut          = "Logout successful!"
	msgDashboard          = "Welcome to the dashboard!"
	msgUnauthorized       = "Unauthorized"
	msgInternalError      = "Internal server error"
	msgNotFound           = "Not found"
)
