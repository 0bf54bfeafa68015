package network

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DataverseError is a failed call to the Dataverse API: either a non-2xx
// status or a response with status ERROR.
type DataverseError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *DataverseError) Error() string {
	return fmt.Sprintf("Dataverse returned %d for %s: %s", e.StatusCode, e.URL, e.Message)
}

// Retryable tells whether the same call may succeed later. Server
// errors, timeouts, rate limiting and dataset locks are retryable;
// other client errors mean the request itself is wrong.
func (e *DataverseError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusLocked, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// DataverseResponse is the envelope of every native API response.
type DataverseResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`

	StatusCode int    `json:"-"`
	URL        string `json:"-"`
	raw        []byte
}

// RawResponseData returns the response body as received.
func (resp *DataverseResponse) RawResponseData() []byte {
	return resp.raw
}

// UnmarshalData decodes the data part of the response into target.
func (resp *DataverseResponse) UnmarshalData(target interface{}) error {
	if len(resp.Data) == 0 {
		return fmt.Errorf("Response from %s has no data", resp.URL)
	}
	if err := json.Unmarshal(resp.Data, target); err != nil {
		return fmt.Errorf("Cannot parse data of response from %s: %v", resp.URL, err)
	}
	return nil
}

func parseResponse(statusCode int, url string, body []byte) (*DataverseResponse, error) {
	resp := &DataverseResponse{StatusCode: statusCode, URL: url, raw: body}
	if len(body) > 0 {
		if err := json.Unmarshal(body, resp); err != nil && statusCode < 300 {
			return nil, fmt.Errorf("Cannot parse response from %s: %v", url, err)
		}
	}
	if statusCode < 200 || statusCode > 299 || resp.Status == "ERROR" {
		message := resp.Message
		if message == "" {
			message = string(body)
		}
		if message == "" {
			message = http.StatusText(statusCode)
		}
		return resp, &DataverseError{StatusCode: statusCode, Message: message, URL: url}
	}
	return resp, nil
}

// fileJson is how Dataverse describes a file in a dataset version.
type fileJson struct {
	Label          string   `json:"label"`
	DirectoryLabel string   `json:"directoryLabel"`
	Description    string   `json:"description"`
	Categories     []string `json:"categories"`
	Restricted     bool     `json:"restricted"`
	DataFile       struct {
		Id int64 `json:"id"`
	} `json:"dataFile"`
}

// fileMetadataJson is the jsonData part of add, replace and metadata
// update requests.
type fileMetadataJson struct {
	Label          string   `json:"label,omitempty"`
	DirectoryLabel string   `json:"directoryLabel,omitempty"`
	Description    string   `json:"description,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	Restrict       bool     `json:"restrict"`
	ForceReplace   bool     `json:"forceReplace,omitempty"`
}

type roleAssignmentJson struct {
	Id        int64  `json:"id"`
	Assignee  string `json:"assignee"`
	RoleAlias string `json:"_roleAlias"`
}

type lockJson struct {
	LockType string `json:"lockType"`
}
