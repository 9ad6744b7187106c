package types

// ResponseModeBlocking asks the API to finish processing before replying
const ResponseModeBlocking = "blocking"

// RunInputs carries the scenario inputs; only the encoded image is sent
type RunInputs struct {
	Base64 string `json:"base64"`
}

// RunRequest is the body of POST /v1/scenarios/run
type RunRequest struct {
	Inputs       RunInputs `json:"inputs"`
	ResponseMode string    `json:"response_mode"`
	User         string    `json:"user"`
}

// APIResponse is the decoded response body. Its shape is expected to be
// {"result": {"response": ...}} but nothing enforces it.
type APIResponse = map[string]any

// Output holds every rendering of one processed image
type Output struct {
	RequestID string `json:"request_id"`
	Base64Len int    `json:"base64_length"`
	Raw       string `json:"output"`
	Compact   string `json:"compact"`
	Markdown  string `json:"markdown"`
	Text      string `json:"text"`
}

// NewRunRequest builds a blocking run request for one encoded image
func NewRunRequest(imgB64, user string) RunRequest {
	return RunRequest{
		Inputs:       RunInputs{Base64: imgB64},
		ResponseMode: ResponseModeBlocking,
		User:         user,
	}
}
