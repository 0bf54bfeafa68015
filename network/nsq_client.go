package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
)

// ImportRequest is the body of an NSQ message that asks a listener to
// import a directory. Path is either a single deposit or a directory
// of deposits, depending on SingleDeposit.
type ImportRequest struct {
	Path          string `json:"path"`
	SingleDeposit bool   `json:"singleDeposit"`
}

type NSQClient struct {
	URL string
}

// Returns a new NSQ client that posts to the nsqd HTTP address at url,
// typically Config.NsqdHttpAddress, which usually ends with :4151.
//
// Note that this client provides write access to the queue only. The
// listener does the reading.
func NewNSQClient(url string) *NSQClient {
	return &NSQClient{URL: url}
}

// Enqueue publishes body as one message on topic.
func (client *NSQClient) Enqueue(topic string, body []byte) error {
	pubUrl := fmt.Sprintf("%s/pub?topic=%s", client.URL, url.QueryEscape(topic))
	resp, err := http.Post(pubUrl, "application/octet-stream", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("Nsqd returned an error when queuing data: %v", err)
	}

	// nsqd sends a simple OK. We have to read the response body,
	// or the connection will hang open forever.
	respBody, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyText := "[no response body]"
		if len(respBody) > 0 {
			bodyText = string(respBody)
		}
		return fmt.Errorf("nsqd returned status code %d when attempting to queue data. "+
			"Response body: %s", resp.StatusCode, bodyText)
	}
	return nil
}

// EnqueueImport publishes an ImportRequest on topic.
func (client *NSQClient) EnqueueImport(topic string, request *ImportRequest) error {
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}
	return client.Enqueue(topic, body)
}
