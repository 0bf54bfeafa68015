package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/stats"
	"github.com/op/go-logging"
)

// ApiKeyHeader carries the API key on every request.
const ApiKeyHeader = "X-Dataverse-key"

// DataverseClient talks to the Dataverse native API. Datasets are
// addressed by persistent id.
type DataverseClient struct {
	hostUrl    string
	collection string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
	stats      *stats.IngestStats
}

// NewDataverseClient returns a client for the Dataverse at hostUrl.
// New datasets are created in the collection with the given alias.
// Param ingestStats may be nil.
func NewDataverseClient(hostUrl, collection, apiKey string, timeout time.Duration, logger *logging.Logger, ingestStats *stats.IngestStats) (*DataverseClient, error) {
	if hostUrl == "" {
		return nil, fmt.Errorf("Dataverse URL cannot be empty")
	}
	if _, err := url.Parse(hostUrl); err != nil {
		return nil, fmt.Errorf("Invalid Dataverse URL '%s': %v", hostUrl, err)
	}
	return &DataverseClient{
		hostUrl:    hostUrl,
		collection: collection,
		apiKey:     apiKey,
		httpClient: &http.Client{Transport: NewDataverseTransport(timeout)},
		logger:     logger,
		stats:      ingestStats,
	}, nil
}

// NewDataverseTransport returns the transport of the Dataverse client.
// The timeout bounds connecting and the wait for response headers after
// the request body is sent. Streaming a batch zip is not bounded, so a
// large MaxUploadSize does not need a larger timeout.
func NewDataverseTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   8,
	}
}

// BuildUrl returns the absolute URL of relativeUrl, with params as the
// query string.
func (client *DataverseClient) BuildUrl(relativeUrl string, params url.Values) string {
	fullUrl := client.hostUrl + relativeUrl
	if len(params) > 0 {
		fullUrl += "?" + params.Encode()
	}
	return fullUrl
}

func pidParams(pid string, extra ...string) url.Values {
	params := url.Values{"persistentId": {pid}}
	for i := 0; i+1 < len(extra); i += 2 {
		params.Set(extra[i], extra[i+1])
	}
	return params
}

func (client *DataverseClient) ListFiles(pid string) ([]*models.FileMeta, error) {
	resp, err := client.doJson("ListFiles", "GET",
		client.BuildUrl("/api/datasets/:persistentId/versions/:latest/files", pidParams(pid)), nil)
	if err != nil {
		return nil, err
	}
	files := make([]*fileJson, 0)
	if err = resp.UnmarshalData(&files); err != nil {
		return nil, err
	}
	return toFileMetas(files), nil
}

func (client *DataverseClient) CreateDataset(dataset *models.Dataset) (string, error) {
	resp, err := client.doJson("CreateDataset", "POST",
		client.BuildUrl(fmt.Sprintf("/api/dataverses/%s/datasets", url.PathEscape(client.collection)), nil), dataset)
	if err != nil {
		return "", err
	}
	created := struct {
		Id           int64  `json:"id"`
		PersistentId string `json:"persistentId"`
	}{}
	if err = resp.UnmarshalData(&created); err != nil {
		return "", err
	}
	if created.PersistentId == "" {
		return "", fmt.Errorf("Dataverse did not return a persistent id for the new dataset")
	}
	return created.PersistentId, nil
}

func (client *DataverseClient) UpdateMetadata(pid string, version *models.DatasetVersion) error {
	_, err := client.doJson("UpdateMetadata", "PUT",
		client.BuildUrl("/api/datasets/:persistentId/versions/:draft", pidParams(pid)), version)
	return err
}

// AddFiles uploads the file at localPath. The name Dataverse sees is
// meta.Label, or the local file name when meta has no label.
func (client *DataverseClient) AddFiles(pid string, localPath string, meta *models.FileMeta) ([]*models.FileMeta, error) {
	jsonData := &fileMetadataJson{
		DirectoryLabel: meta.DirectoryLabel,
		Description:    meta.Description,
		Categories:     meta.Categories,
		Restrict:       meta.Restricted,
	}
	resp, err := client.doMultipart("AddFiles",
		client.BuildUrl("/api/datasets/:persistentId/add", pidParams(pid)), localPath, meta.Label, jsonData)
	if err != nil {
		return nil, err
	}
	return filesOf(resp)
}

func (client *DataverseClient) ReplaceFile(fileId int64, localPath string, meta *models.FileMeta) (*models.FileMeta, error) {
	jsonData := &fileMetadataJson{
		DirectoryLabel: meta.DirectoryLabel,
		Description:    meta.Description,
		Categories:     meta.Categories,
		Restrict:       meta.Restricted,
		ForceReplace:   true,
	}
	resp, err := client.doMultipart("ReplaceFile",
		client.BuildUrl(fmt.Sprintf("/api/files/%d/replace", fileId), nil), localPath, meta.Label, jsonData)
	if err != nil {
		return nil, err
	}
	files, err := filesOf(resp)
	if err != nil {
		return nil, err
	}
	if len(files) != 1 {
		return nil, fmt.Errorf("Replace of file %d returned %d files", fileId, len(files))
	}
	return files[0], nil
}

func (client *DataverseClient) DeleteFiles(pid string, fileIds []int64) error {
	_, err := client.doJson("DeleteFiles", "PUT",
		client.BuildUrl("/api/datasets/:persistentId/deleteFiles", pidParams(pid)), fileIds)
	return err
}

// UpdateFileMetadata sets the labels, description, categories and
// restriction of a file. Moving a file is a change of its labels.
func (client *DataverseClient) UpdateFileMetadata(fileId int64, meta *models.FileMeta) error {
	jsonData := &fileMetadataJson{
		Label:          meta.Label,
		DirectoryLabel: meta.DirectoryLabel,
		Description:    meta.Description,
		Categories:     meta.Categories,
		Restrict:       meta.Restricted,
	}
	_, err := client.doMultipart("UpdateFileMetadata",
		client.BuildUrl(fmt.Sprintf("/api/files/%d/metadata", fileId), nil), "", "", jsonData)
	return err
}

func (client *DataverseClient) SetEmbargo(pid string, embargo *models.Embargo, fileIds []int64) error {
	body := struct {
		DateAvailable string  `json:"dateAvailable"`
		Reason        string  `json:"reason,omitempty"`
		FileIds       []int64 `json:"fileIds"`
	}{embargo.DateAvailable, embargo.Reason, fileIds}
	_, err := client.doJson("SetEmbargo", "POST",
		client.BuildUrl("/api/datasets/:persistentId/files/actions/:set-embargo", pidParams(pid)), body)
	return err
}

func (client *DataverseClient) AssignRole(pid string, assignment *models.RoleAssignment) error {
	_, err := client.doJson("AssignRole", "POST",
		client.BuildUrl("/api/datasets/:persistentId/assignments", pidParams(pid)), assignment)
	return err
}

// DeleteRoleAssignment looks up the id of the assignment and deletes
// it. Returns false when the dataset has no such assignment.
func (client *DataverseClient) DeleteRoleAssignment(pid string, assignment *models.RoleAssignment) (bool, error) {
	resp, err := client.doJson("ListRoleAssignments", "GET",
		client.BuildUrl("/api/datasets/:persistentId/assignments", pidParams(pid)), nil)
	if err != nil {
		return false, err
	}
	assignments := make([]*roleAssignmentJson, 0)
	if err = resp.UnmarshalData(&assignments); err != nil {
		return false, err
	}
	for _, existing := range assignments {
		if existing.Assignee == assignment.Assignee && existing.RoleAlias == assignment.Role {
			_, err = client.doJson("DeleteRoleAssignment", "DELETE",
				client.BuildUrl(fmt.Sprintf("/api/datasets/:persistentId/assignments/%d", existing.Id), pidParams(pid)), nil)
			return err == nil, err
		}
	}
	return false, nil
}

func (client *DataverseClient) EditMetadata(pid string, fields []*models.MetadataField, replace bool) error {
	params := pidParams(pid)
	if replace {
		params.Set("replace", "true")
	}
	_, err := client.doJson("EditMetadata", "PUT",
		client.BuildUrl("/api/datasets/:persistentId/editMetadata", params), fieldsBody(fields))
	return err
}

func (client *DataverseClient) DeleteMetadata(pid string, fields []*models.MetadataField) error {
	_, err := client.doJson("DeleteMetadata", "PUT",
		client.BuildUrl("/api/datasets/:persistentId/deleteMetadata", pidParams(pid)), fieldsBody(fields))
	return err
}

func (client *DataverseClient) Publish(pid string, versionType string) error {
	_, err := client.doJson("Publish", "POST",
		client.BuildUrl("/api/datasets/:persistentId/actions/:publish", pidParams(pid, "type", versionType)), nil)
	return err
}

// ReleaseMigrated publishes migrated content with its original
// publication date, without a new version number.
func (client *DataverseClient) ReleaseMigrated(pid string, releaseDate time.Time) error {
	body, err := json.Marshal(map[string]string{
		"http://schema.org/datePublished": releaseDate.Format(constants.DateFormat),
	})
	if err != nil {
		return err
	}
	_, err = client.do("ReleaseMigrated", "POST",
		client.BuildUrl("/api/datasets/:persistentId/actions/:releasemigrated", pidParams(pid)),
		"application/ld+json", bytes.NewReader(body))
	return err
}

func (client *DataverseClient) GetVersionState(pid string) (string, error) {
	resp, err := client.doJson("GetVersionState", "GET",
		client.BuildUrl("/api/datasets/:persistentId/versions/:latest", pidParams(pid)), nil)
	if err != nil {
		return "", err
	}
	version := struct {
		VersionState string `json:"versionState"`
	}{}
	if err = resp.UnmarshalData(&version); err != nil {
		return "", err
	}
	return version.VersionState, nil
}

func (client *DataverseClient) GetLocks(pid string) ([]string, error) {
	resp, err := client.doJson("GetLocks", "GET",
		client.BuildUrl("/api/datasets/:persistentId/locks", pidParams(pid)), nil)
	if err != nil {
		return nil, err
	}
	locks := make([]*lockJson, 0)
	if err = resp.UnmarshalData(&locks); err != nil {
		return nil, err
	}
	lockTypes := make([]string, len(locks))
	for i, lock := range locks {
		lockTypes[i] = lock.LockType
	}
	return lockTypes, nil
}

func (client *DataverseClient) doJson(operation, method, absUrl string, body interface{}) (*DataverseResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("Cannot encode request body for %s: %v", operation, err)
		}
		reader = bytes.NewReader(data)
	}
	return client.do(operation, method, absUrl, "application/json", reader)
}

// doMultipart posts jsonData, and the file at localPath when it is not
// empty, as multipart form data. The file is streamed, not buffered.
// An empty fileName means the local file name.
func (client *DataverseClient) doMultipart(operation, absUrl, localPath, fileName string, jsonData interface{}) (*DataverseResponse, error) {
	if fileName == "" && localPath != "" {
		fileName = filepath.Base(localPath)
	}
	metadata, err := json.Marshal(jsonData)
	if err != nil {
		return nil, fmt.Errorf("Cannot encode jsonData for %s: %v", operation, err)
	}
	var file *os.File
	if localPath != "" {
		if file, err = os.Open(localPath); err != nil {
			return nil, err
		}
		defer file.Close()
	}
	pipeReader, pipeWriter := io.Pipe()
	formWriter := multipart.NewWriter(pipeWriter)
	go func() {
		pipeWriter.CloseWithError(writeForm(formWriter, file, fileName, metadata))
	}()
	resp, err := client.do(operation, "POST", absUrl, formWriter.FormDataContentType(), pipeReader)
	pipeReader.Close()
	return resp, err
}

func writeForm(formWriter *multipart.Writer, file *os.File, fileName string, metadata []byte) error {
	if file != nil {
		part, err := formWriter.CreateFormFile("file", fileName)
		if err != nil {
			return err
		}
		if _, err = io.Copy(part, file); err != nil {
			return err
		}
	}
	if err := formWriter.WriteField("jsonData", string(metadata)); err != nil {
		return err
	}
	return formWriter.Close()
}

func (client *DataverseClient) do(operation, method, absUrl, contentType string, body io.Reader) (*DataverseResponse, error) {
	resp, err := client.roundTrip(method, absUrl, contentType, body)
	client.stats.RemoteCall(operation, err)
	if err != nil && client.logger != nil {
		client.logger.Warningf("%s %s failed: %v", method, absUrl, err)
	}
	return resp, err
}

func (client *DataverseClient) roundTrip(method, absUrl, contentType string, body io.Reader) (*DataverseResponse, error) {
	request, err := http.NewRequest(method, absUrl, body)
	if err != nil {
		return nil, err
	}
	request.Header.Set(ApiKeyHeader, client.apiKey)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", contentType)
	}
	if client.logger != nil {
		client.logger.Debugf("%s %s", method, absUrl)
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v", method, absUrl, err)
	}
	// Read the whole body, or the connection is not reused.
	data, err := ioutil.ReadAll(response.Body)
	response.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("Cannot read response from %s: %v", absUrl, err)
	}
	return parseResponse(response.StatusCode, absUrl, data)
}

func fieldsBody(fields []*models.MetadataField) interface{} {
	return map[string][]*models.MetadataField{"fields": fields}
}

// filesOf reads the files of an add or replace response.
func filesOf(resp *DataverseResponse) ([]*models.FileMeta, error) {
	added := struct {
		Files []*fileJson `json:"files"`
	}{}
	if err := resp.UnmarshalData(&added); err != nil {
		return nil, err
	}
	return toFileMetas(added.Files), nil
}

func toFileMetas(files []*fileJson) []*models.FileMeta {
	metas := make([]*models.FileMeta, len(files))
	for i, file := range files {
		metas[i] = &models.FileMeta{
			Id:             file.DataFile.Id,
			Label:          file.Label,
			DirectoryLabel: file.DirectoryLabel,
			Description:    file.Description,
			Categories:     file.Categories,
			Restricted:     file.Restricted,
		}
	}
	return metas
}
