package network_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueImport(t *testing.T) {
	received := make([]*network.ImportRequest, 0)
	topics := make([]string, 0)
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pub", r.URL.Path)
		topics = append(topics, r.URL.Query().Get("topic"))
		request := &network.ImportRequest{}
		require.Nil(t, json.NewDecoder(r.Body).Decode(request))
		received = append(received, request)
		fmt.Fprint(w, "OK")
	}))
	defer testServer.Close()

	client := network.NewNSQClient(testServer.URL)
	require.Nil(t, client.EnqueueImport("dd_ingest_topic", &network.ImportRequest{Path: "/data/inbox"}))
	require.Nil(t, client.EnqueueImport("dd_ingest_topic", &network.ImportRequest{Path: "/data/inbox/dep-1", SingleDeposit: true}))

	assert.Equal(t, []string{"dd_ingest_topic", "dd_ingest_topic"}, topics)
	require.Len(t, received, 2)
	assert.Equal(t, "/data/inbox", received[0].Path)
	assert.False(t, received[0].SingleDeposit)
	assert.True(t, received[1].SingleDeposit)
}

func TestEnqueueError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "INVALID_TOPIC")
	}))
	defer testServer.Close()

	err := network.NewNSQClient(testServer.URL).Enqueue("bad topic!", []byte("x"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "INVALID_TOPIC")
}
