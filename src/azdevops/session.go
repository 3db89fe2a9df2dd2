package azdevops

import "encoding/base64"

// Session is the caller-supplied identity every request is made with.
// The client never stores credentials beyond the Session it was built with.
type Session struct {
	// Organization is the Azure DevOps organization name.
	Organization string
	// Authorization is the complete Authorization header value.
	Authorization string
}

// BasicToken returns a basic Authorization header value for a personal access token.
// The user name may be empty; Azure DevOps only checks the token.
func BasicToken(user, pat string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pat))
}

// BearerToken returns a bearer Authorization header value.
func BearerToken(token string) string {
	return "Bearer " + token
}
