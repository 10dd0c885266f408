package controllers

// envelope wraps every JSON response body, {"data": ...} on success and
// {"error": ...} on failure.
type envelope map[string]interface{}
